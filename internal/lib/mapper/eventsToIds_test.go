package mapper

import (
	"testing"

	"github.com/IlianBuh/Wall/internal/domain/models"
	"github.com/stretchr/testify/require"
)

func TestEventsToIds(t *testing.T) {
	require.Empty(t, EventsToIds(nil))

	ids := EventsToIds([]models.Event{{Id: 7}, {Id: 3}, {Id: 9}})
	require.Equal(t, []int64{7, 3, 9}, ids)
}
