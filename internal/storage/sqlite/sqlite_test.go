package sqlite

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/IlianBuh/Wall/internal/domain/models"
	"github.com/IlianBuh/Wall/internal/lib/mapper"
	"github.com/IlianBuh/Wall/internal/storage"
	"github.com/IlianBuh/Wall/internal/storage/events"
	"github.com/brianvoe/gofakeit"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func TestSaveAndList(t *testing.T) {
	s := newTestStorage(t)
	ctx := t.Context()

	posts, err := s.ListPosts(ctx)
	require.NoError(t, err)
	require.Empty(t, posts)

	saved := make([]models.Post, 0, 5)
	for i := 0; i < 5; i++ {
		post, err := s.SavePost(ctx, gofakeit.Sentence(4), nil)
		require.NoError(t, err)
		require.False(t, post.CreatedAt.IsZero())
		saved = append(saved, post)
	}

	posts, err = s.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 5)
	for i := range posts {
		require.Equal(t, saved[len(saved)-1-i].Id, posts[i].Id)
	}
	for i := 1; i < len(posts); i++ {
		require.True(t, posts[i-1].Newer(posts[i]))
	}
}

func TestSaveWithImage(t *testing.T) {
	s := newTestStorage(t)

	url := "http://localhost:9000/posts/1700000000000-1_cat.png"
	post, err := s.SavePost(t.Context(), "", &url)
	require.NoError(t, err)
	require.Equal(t, "", post.Message)
	require.NotNil(t, post.ImageURL)
	require.Equal(t, url, *post.ImageURL)

	posts, err := s.ListPosts(t.Context())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, url, *posts[0].ImageURL)
}

func TestSaveRejectsLongMessage(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.SavePost(t.Context(), strings.Repeat("a", 281), nil)
	require.Error(t, err)

	page, err := s.EventPage(t.Context(), 10)
	require.NoError(t, err)
	require.Empty(t, page)
}

func TestOutbox(t *testing.T) {
	s := newTestStorage(t)
	ctx := t.Context()

	first, err := s.SavePost(ctx, "first", nil)
	require.NoError(t, err)
	second, err := s.SavePost(ctx, "second", nil)
	require.NoError(t, err)

	page, err := s.EventPage(ctx, 10)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, models.EventPostCreated, page[0].Type)

	p0, err := events.ParsePayload([]byte(page[0].Payload))
	require.NoError(t, err)
	p1, err := events.ParsePayload([]byte(page[1].Payload))
	require.NoError(t, err)
	require.Equal(t, first.Id, p0.Id)
	require.Equal(t, second.Id, p1.Id)

	ids := mapper.EventsToIds(page)
	require.NoError(t, s.Reserve(ctx, ids))
	require.True(t, errors.Is(s.Reserve(ctx, ids), storage.ErrNoEvents))
	require.True(t, errors.Is(s.Reserve(ctx, nil), storage.ErrNoEvents))

	page, err = s.EventPage(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, page)

	require.NoError(t, s.Release(ctx, ids[:1]))
	page, err = s.EventPage(ctx, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, ids[0], page[0].Id)

	require.NoError(t, s.DeleteEvents(ctx, ids))
	page, err = s.EventPage(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, page)
}

func TestEventPageLimit(t *testing.T) {
	s := newTestStorage(t)

	for i := 0; i < 4; i++ {
		_, err := s.SavePost(t.Context(), gofakeit.Word(), nil)
		require.NoError(t, err)
	}

	page, err := s.EventPage(t.Context(), 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	require.Less(t, page[0].Id, page[1].Id)
	require.Less(t, page[1].Id, page[2].Id)
}

func TestReopenKeepsPosts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wall.db")

	s, err := New(path)
	require.NoError(t, err)
	_, err = s.SavePost(t.Context(), "persisted", nil)
	require.NoError(t, err)
	require.NoError(t, s.Stop())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Stop()

	posts, err := s.ListPosts(t.Context())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "persisted", posts[0].Message)
}

func TestPlaceholders(t *testing.T) {
	require.Equal(t, "?", placeholders(1))
	require.Equal(t, "?,?,?", placeholders(3))
}
