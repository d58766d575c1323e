package app

import (
	"path/filepath"
	"testing"

	cfgStorage "github.com/IlianBuh/Wall/internal/config/storage"
	"github.com/IlianBuh/Wall/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestOpenStoreSQLite(t *testing.T) {
	s, err := OpenStore(cfgStorage.Config{
		Driver: cfgStorage.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "wall.db"),
	})
	require.NoError(t, err)
	defer s.Stop()

	_, err = s.SavePost(t.Context(), "hello", nil)
	require.NoError(t, err)

	posts, err := s.ListPosts(t.Context())
	require.NoError(t, err)
	require.Len(t, posts, 1)
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, err := OpenStore(cfgStorage.Config{Driver: "mysql"})
	require.ErrorIs(t, err, storage.ErrBadDriver)
}
