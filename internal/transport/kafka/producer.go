package kafka

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"log/slog"

	"github.com/IBM/sarama"
	"github.com/IlianBuh/Wall/internal/domain/models"
	"github.com/IlianBuh/Wall/internal/lib/logger/sl"
	"github.com/IlianBuh/Wall/internal/storage/events"
)

const (
	initialRetryTime = 1
)

type Producer struct {
	log      *slog.Logger
	producer sarama.SyncProducer
	topic    string
}

// NewProducer creates new kafka producer. If brokers are unavailable
// creation is retried with growing pause up to maxTimeout seconds
func NewProducer(
	ctx context.Context,
	log *slog.Logger,
	addrs []string,
	topic string,
	maxTimeout int,
	retries int,
) (*Producer, error) {
	const op = "kafka.NewProducer"
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = retries
	cfg.Producer.Timeout = time.Duration(maxTimeout) * time.Second
	cfg.Producer.Partitioner = sarama.NewHashPartitioner

	p, err := sarama.NewSyncProducer(addrs, cfg)
	if err != nil {
		log.Warn("failed to create producer, retrying", slog.String("op", op), sl.Err(err))
		p, err = tryToCreateProducer(ctx, addrs, cfg, maxTimeout, retries)
		if err != nil {
			return nil, fail(op, err)
		}
	}

	return newProducer(log, p, topic), nil
}

func newProducer(log *slog.Logger, p sarama.SyncProducer, topic string) *Producer {
	return &Producer{
		log:      log,
		producer: p,
		topic:    topic,
	}
}

// tryToCreateProducer tries to make producer instance
func tryToCreateProducer(
	ctx context.Context,
	addrs []string,
	cfg *sarama.Config,
	maxTimeout, retries int,
) (sarama.SyncProducer, error) {
	const op = "kafka.tryToCreateProducer"
	var (
		err error
		p   sarama.SyncProducer
	)
	timeout := initialRetryTime

	for retries > 0 {
		retries--

		select {
		case <-ctx.Done():
			return nil, fail(op, ctx.Err())
		case <-time.After(time.Duration(timeout) * time.Second):
		}

		p, err = sarama.NewSyncProducer(addrs, cfg)
		if err == nil {
			return p, nil
		}

		timeout *= 2
		if timeout > maxTimeout {
			timeout = maxTimeout
		}
	}

	if err == nil {
		err = fmt.Errorf("no retries left")
	}

	return nil, fail(op, err)
}

// Send sends page of events to kafka keeping their order.
// It returns after all messages are acknowledged
func (p *Producer) Send(ctx context.Context, page []models.Event) error {
	const op = "producer.Send"
	log := p.log.With(slog.String("op", op))

	if err := ctx.Err(); err != nil {
		return fail(op, err)
	}
	if len(page) == 0 {
		return nil
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(page))
	for _, event := range page {
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic:     p.topic,
			Key:       sarama.StringEncoder(eventKey(event)),
			Value:     sarama.StringEncoder(event.Payload),
			Timestamp: event.CreatedAt,
		})
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		log.Error("failed to send messages", sl.Err(err))
		return fail(op, err)
	}

	log.Debug("all events were sent successfully", slog.Int("count", len(page)))
	return nil
}

// eventKey keys the message by post id, falling back to the event id
func eventKey(event models.Event) string {
	post, err := events.ParsePayload([]byte(event.Payload))
	if err != nil {
		return "event-" + strconv.FormatInt(event.Id, 10)
	}

	return events.CollectEventKey(post.Id)
}

// Stop stops kafka producer
func (p *Producer) Stop() {
	const op = "producer.Stop"
	p.log.Info("starting to stop producer", slog.String("op", op))
	err := p.producer.Close()
	if err != nil {
		p.log.Error(
			"error during closing",
			slog.String("op", op),
			sl.Err(err),
		)
	}
}

func fail(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
