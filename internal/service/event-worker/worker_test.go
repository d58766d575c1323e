package eventworker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IlianBuh/Wall/internal/domain/models"
	"github.com/IlianBuh/Wall/internal/lib/logger/handlers/slogdiscard"
	"github.com/IlianBuh/Wall/internal/lib/metrics"
	"github.com/IlianBuh/Wall/internal/storage/events"
	"github.com/IlianBuh/Wall/internal/storage/sqlite"
	"github.com/brianvoe/gofakeit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

type senderMock struct {
	mu   sync.Mutex
	err  error
	sent []models.Event
}

func (s *senderMock) Send(ctx context.Context, page []models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, page...)
	return nil
}

func (s *senderMock) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *senderMock) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func newTestStorage(t *testing.T) *sqlite.Storage {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Stop() })

	return store
}

func newTestWorker(store *sqlite.Storage, sender Sender, pageSize int) *Worker {
	return New(
		slogdiscard.NewDiscardLogger(),
		pageSize,
		store, store, store, store,
		sender,
		10*time.Millisecond,
		time.Second,
		nil,
	)
}

func savePosts(t *testing.T, store *sqlite.Storage, n int) []models.Post {
	t.Helper()

	posts := make([]models.Post, 0, n)
	for range n {
		p, err := store.SavePost(t.Context(), gofakeit.Sentence(5), nil)
		require.NoError(t, err)
		posts = append(posts, p)
	}

	return posts
}

func TestHandleEventsRelaysInCommitOrder(t *testing.T) {
	store := newTestStorage(t)
	sender := &senderMock{}
	posts := savePosts(t, store, 5)

	w := newTestWorker(store, sender, 3)
	require.NoError(t, w.handleEvents(t.Context()))
	require.NoError(t, w.handleEvents(t.Context()))

	require.Len(t, sender.sent, 5)
	for i, e := range sender.sent {
		require.Equal(t, models.EventPostCreated, e.Type)
		post, err := events.ParsePayload([]byte(e.Payload))
		require.NoError(t, err)
		require.Equal(t, posts[i].Id, post.Id)
		require.Equal(t, posts[i].Message, post.Message)
	}

	page, err := store.EventPage(t.Context(), 10)
	require.NoError(t, err)
	require.Empty(t, page)
}

func TestHandleEventsIdle(t *testing.T) {
	store := newTestStorage(t)
	sender := &senderMock{}
	reg := prometheus.NewRegistry()
	m := metrics.NewRelay(reg)

	w := New(slogdiscard.NewDiscardLogger(), 10, store, store, store, store, sender, time.Second, time.Second, m)
	require.NoError(t, w.handleEvents(t.Context()))
	require.Zero(t, sender.count())
}

func TestHandleEventsReleasesOnSendFailure(t *testing.T) {
	store := newTestStorage(t)
	sender := &senderMock{}
	sender.setErr(errors.New("broker is down"))
	savePosts(t, store, 2)

	w := newTestWorker(store, sender, 10)
	err := w.handleEvents(t.Context())
	require.Error(t, err)
	require.Zero(t, sender.count())

	// released events are taken by the next cycle
	page, err := store.EventPage(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, page, 2)

	sender.setErr(nil)
	require.NoError(t, w.handleEvents(t.Context()))
	require.Equal(t, 2, sender.count())
}

type reserverMock struct {
	err error
}

func (r reserverMock) Reserve(ctx context.Context, ids []int64) error { return r.err }

func TestHandleEventsReserveFailure(t *testing.T) {
	store := newTestStorage(t)
	sender := &senderMock{}
	savePosts(t, store, 1)

	cause := errors.New("database is locked")
	w := New(slogdiscard.NewDiscardLogger(), 10, store, reserverMock{err: cause}, store, store, sender, time.Second, time.Second, nil)

	err := w.handleEvents(t.Context())
	require.ErrorIs(t, err, cause)
	require.Zero(t, sender.count())
}

func TestStartStop(t *testing.T) {
	store := newTestStorage(t)
	sender := &senderMock{}
	savePosts(t, store, 4)

	w := newTestWorker(store, sender, 2)
	w.Start(t.Context())

	require.Eventually(t, func() bool { return sender.count() == 4 }, time.Second, 5*time.Millisecond)

	w.Stop()
	w.Stop()

	savePosts(t, store, 1)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 4, sender.count())
}

func TestStopsWithContext(t *testing.T) {
	store := newTestStorage(t)
	w := newTestWorker(store, &senderMock{}, 2)

	ctx, cancel := context.WithCancel(t.Context())
	w.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

type flakyDeleter struct {
	store *sqlite.Storage
	fails int
	calls [][]int64
}

func (d *flakyDeleter) DeleteEvents(ctx context.Context, ids []int64) error {
	d.calls = append(d.calls, append([]int64(nil), ids...))
	if d.fails > 0 {
		d.fails--
		return errors.New("connection reset")
	}
	return d.store.DeleteEvents(ctx, ids)
}

func TestHandleEventsRetriesFailedDelete(t *testing.T) {
	store := newTestStorage(t)
	sender := &senderMock{}
	deleter := &flakyDeleter{store: store, fails: 2}
	savePosts(t, store, 2)

	w := New(slogdiscard.NewDiscardLogger(), 10, store, store, store, deleter, sender, time.Second, time.Second, nil)

	// sent, but not deleted
	require.Error(t, w.handleEvents(t.Context()))
	require.Equal(t, 2, sender.count())

	// retry fails again, nothing new is sent
	require.Error(t, w.handleEvents(t.Context()))
	require.Equal(t, 2, sender.count())

	savePosts(t, store, 1)
	require.NoError(t, w.handleEvents(t.Context()))
	require.Equal(t, 3, sender.count())

	require.Len(t, deleter.calls, 4)
	require.Equal(t, deleter.calls[0], deleter.calls[1])
	require.Equal(t, deleter.calls[0], deleter.calls[2])
	require.Len(t, deleter.calls[3], 1)

	page, err := store.EventPage(t.Context(), 10)
	require.NoError(t, err)
	require.Empty(t, page)

	// every event is gone, reserved ones included
	require.NoError(t, store.Release(t.Context(), []int64{1, 2, 3}))
	page, err = store.EventPage(t.Context(), 10)
	require.NoError(t, err)
	require.Empty(t, page)
}
