package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IlianBuh/Wall/internal/domain/models"
	"github.com/IlianBuh/Wall/internal/lib/logger/sl"
	"github.com/IlianBuh/Wall/internal/storage/events"
	kafkago "github.com/segmentio/kafka-go"
)

// messageReader is the part of kafka-go reader used by subscriptions
type messageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	Close() error
}

// Subscriber opens live subscriptions to inserted posts.
// Every subscription reads the topic on its own, from the latest offset
type Subscriber struct {
	log       *slog.Logger
	newReader func() (messageReader, error)
}

func NewSubscriber(log *slog.Logger, brokers []string, topic string) *Subscriber {
	return &Subscriber{
		log: log,
		newReader: func() (messageReader, error) {
			if len(brokers) == 0 {
				return nil, errors.New("no brokers")
			}

			r := kafkago.NewReader(kafkago.ReaderConfig{
				Brokers:  brokers,
				Topic:    topic,
				MinBytes: 1,
				MaxBytes: 10e6,
				MaxWait:  500 * time.Millisecond,
			})
			if err := r.SetOffset(kafkago.LastOffset); err != nil {
				_ = r.Close()
				return nil, err
			}

			return r, nil
		},
	}
}

// Subscribe starts delivering inserted posts. ctx bounds the whole
// subscription lifetime. The subscription must be closed by the caller
func (s *Subscriber) Subscribe(ctx context.Context) (*Subscription, error) {
	const op = "subscriber.Subscribe"

	r, err := s.newReader()
	if err != nil {
		return nil, fail(op, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		log:    s.log.With(slog.String("op", "subscription.run")),
		posts:  make(chan models.Post),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go sub.run(ctx, r)

	return sub, nil
}

// Subscription is one live stream of inserted posts
type Subscription struct {
	log    *slog.Logger
	posts  chan models.Post
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Posts returns channel of inserted posts. It is closed when the subscription ends
func (s *Subscription) Posts() <-chan models.Post {
	return s.posts
}

// Err returns the reason the subscription ended. It is nil after Close
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// Close releases the subscription and waits until delivery stops
func (s *Subscription) Close() error {
	s.cancel()
	<-s.done

	return nil
}

func (s *Subscription) run(ctx context.Context, r messageReader) {
	defer func() {
		if err := r.Close(); err != nil {
			s.log.Warn("failed to close reader", sl.Err(err))
		}
		close(s.posts)
		close(s.done)
	}()

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			s.log.Error("failed to read message", sl.Err(err))
			s.mu.Lock()
			s.err = fmt.Errorf("subscription.run: %w", err)
			s.mu.Unlock()
			return
		}

		post, err := events.ParsePayload(m.Value)
		if err != nil {
			s.log.Warn(
				"skipping malformed message",
				slog.Int64("offset", m.Offset),
				sl.Err(err),
			)
			continue
		}

		select {
		case s.posts <- post:
		case <-ctx.Done():
			return
		}
	}
}
