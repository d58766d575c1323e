package eventworker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/IlianBuh/Wall/internal/domain/models"
	errs "github.com/IlianBuh/Wall/internal/lib/errors"
	"github.com/IlianBuh/Wall/internal/lib/logger/sl"
	"github.com/IlianBuh/Wall/internal/lib/mapper"
	"github.com/IlianBuh/Wall/internal/storage"
)

type PageProvider interface {
	EventPage(ctx context.Context, limit int) ([]models.Event, error)
}

type Reserver interface {
	Reserve(ctx context.Context, ids []int64) error
}

type Releaser interface {
	Release(ctx context.Context, ids []int64) error
}

type Deleter interface {
	DeleteEvents(ctx context.Context, ids []int64) error
}

type Sender interface {
	Send(ctx context.Context, page []models.Event) error
}

type Metrics interface {
	Relayed(n int)
	Failed()
	Idle()
}

// Worker relays outbox events to the change feed
type Worker struct {
	log          *slog.Logger
	pageSize     int
	pageProvider PageProvider
	reserver     Reserver
	releaser     Releaser
	deleter      Deleter
	sender       Sender
	metrics      Metrics
	interval     time.Duration
	timeout      time.Duration

	// undeleted holds ids of sent events whose deletion failed
	undeleted []int64

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func New(
	log *slog.Logger,
	pageSize int,
	pageProvider PageProvider,
	reserver Reserver,
	releaser Releaser,
	deleter Deleter,
	sender Sender,
	interval time.Duration,
	timeout time.Duration,
	metrics Metrics,
) *Worker {
	if metrics == nil {
		metrics = noMetrics{}
	}

	return &Worker{
		log:          log,
		pageSize:     pageSize,
		pageProvider: pageProvider,
		reserver:     reserver,
		releaser:     releaser,
		deleter:      deleter,
		sender:       sender,
		metrics:      metrics,
		interval:     interval,
		timeout:      timeout,
		stop:         make(chan struct{}),
	}
}

// Start runs relay cycles every interval until Stop is called or ctx is done
func (w *Worker) Start(ctx context.Context) {
	const op = "eventworker.Start"
	log := w.log.With(slog.String("op", op))

	ticker := time.NewTicker(w.interval)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-w.stop:
				log.Info("stop signal is received")
				return
			case <-ctx.Done():
				log.Info("context is done")
				return
			case <-ticker.C:
			}

			if err := w.handleEvents(ctx); err != nil {
				w.metrics.Failed()
				log.Error("failed to handle events", sl.Err(err))
			}
		}
	}()

	log.Info("worker started", slog.Duration("interval", w.interval))
}

// Stop stops the worker and waits for the running cycle to finish
func (w *Worker) Stop() {
	const op = "eventworker.Stop"
	w.log.Info("starting to stop worker", slog.String("op", op))

	w.once.Do(func() { close(w.stop) })
	w.wg.Wait()

	w.log.Info("worker stopped", slog.String("op", op))
}

func (w *Worker) handleEvents(ctx context.Context) error {
	const op = "eventworker.handleEvents"
	log := w.log.With(slog.String("op", op))

	ctx, cncl := context.WithTimeout(ctx, w.timeout)
	defer cncl()

	if err := w.deleteUndeleted(ctx); err != nil {
		return errs.Fail(op, err)
	}

	page, err := w.pageProvider.EventPage(ctx, w.pageSize)
	if err != nil {
		log.Error("failed to get event page", sl.Err(err))
		return errs.Fail(op, err)
	}
	if len(page) == 0 {
		w.metrics.Idle()
		return nil
	}

	ids := mapper.EventsToIds(page)

	err = w.reserver.Reserve(ctx, ids)
	if err != nil {
		if errors.Is(err, storage.ErrNoEvents) {
			log.Debug("no new events")
			w.metrics.Idle()
			return nil
		}

		log.Error("failed to reserve events", sl.Err(err))
		return errs.Fail(op, err)
	}

	err = w.sender.Send(ctx, page)
	if err != nil {
		log.Error("failed to send events", sl.Err(err))

		// the cycle context may be already expired
		relCtx, relCncl := context.WithTimeout(context.Background(), w.timeout)
		defer relCncl()
		if relErr := w.releaser.Release(relCtx, ids); relErr != nil {
			log.Error("failed to release events", sl.Err(relErr))
			return errs.Fail(op, errors.Join(err, relErr))
		}

		return errs.Fail(op, err)
	}

	err = w.deleter.DeleteEvents(ctx, ids)
	if err != nil {
		// sent events stay reserved, the next cycle deletes them first
		w.undeleted = append(w.undeleted, ids...)
		log.Error("failed to delete sent events", slog.Any("event-ids", ids), sl.Err(err))
		w.metrics.Relayed(len(page))
		return errs.Fail(op, err)
	}

	w.metrics.Relayed(len(page))
	log.Debug("events are relayed", slog.Int("count", len(page)))

	return nil
}

// deleteUndeleted retries deletion of events sent by earlier cycles
func (w *Worker) deleteUndeleted(ctx context.Context) error {
	const op = "eventworker.deleteUndeleted"

	if len(w.undeleted) == 0 {
		return nil
	}

	if err := w.deleter.DeleteEvents(ctx, w.undeleted); err != nil {
		w.log.Error(
			"failed to delete sent events",
			slog.String("op", op),
			slog.Any("event-ids", w.undeleted),
			sl.Err(err),
		)
		return errs.Fail(op, err)
	}

	w.log.Info("sent events are deleted", slog.String("op", op), slog.Int("count", len(w.undeleted)))
	w.undeleted = nil

	return nil
}

type noMetrics struct{}

func (noMetrics) Relayed(int) {}
func (noMetrics) Failed()     {}
func (noMetrics) Idle()       {}
