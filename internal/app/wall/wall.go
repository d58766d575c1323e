package wall

import (
	"context"
	"log/slog"

	"github.com/IlianBuh/Wall/internal/app"
	"github.com/IlianBuh/Wall/internal/config"
	errs "github.com/IlianBuh/Wall/internal/lib/errors"
	"github.com/IlianBuh/Wall/internal/lib/logger/sl"
	"github.com/IlianBuh/Wall/internal/service/feed"
	"github.com/IlianBuh/Wall/internal/service/gateway"
	"github.com/IlianBuh/Wall/internal/storage/s3"
	"github.com/IlianBuh/Wall/internal/transport/kafka"
)

// App is the wall client: the feed controller over the data gateway
type App struct {
	log     *slog.Logger
	DB      app.Store
	Gateway *gateway.Gateway
	Feed    *feed.Controller
}

// New wires the client. Blob store and live channel are optional:
// without them uploads and subscriptions fail with gateway errors
func New(ctx context.Context, log *slog.Logger, cfg *config.Config, opts ...feed.Option) (*App, error) {
	const op = "wall.New"

	repo, err := app.OpenStore(cfg.Storage)
	if err != nil {
		return nil, errs.Fail(op, err)
	}

	var blobs gateway.BlobStore
	if cfg.Blob.Endpoint != "" {
		b, err := s3.New(s3.Config{
			Endpoint:  cfg.Blob.Endpoint,
			AccessKey: cfg.Blob.AccessKey,
			SecretKey: cfg.Blob.SecretKey,
			UseSSL:    cfg.Blob.UseSSL,
			Bucket:    cfg.Blob.Bucket,
			PublicURL: cfg.Blob.PublicURL,
		})
		if err != nil {
			_ = repo.Stop()
			return nil, errs.Fail(op, err)
		}
		if err = b.EnsureBucket(ctx); err != nil {
			// uploads will report the failure
			log.Warn("failed to ensure bucket", slog.String("op", op), sl.Err(err))
		}
		blobs = b
	} else {
		log.Warn("blob store is not configured, uploads are disabled", slog.String("op", op))
	}

	var live gateway.Subscriber
	if len(cfg.Kafka.Addrs) > 0 {
		sub := kafka.NewSubscriber(log, cfg.Kafka.Addrs, cfg.Kafka.Topic)
		live = gateway.SubscriberFunc(func(ctx context.Context) (gateway.Subscription, error) {
			return sub.Subscribe(ctx)
		})
	} else {
		log.Warn("change feed is not configured, live updates are disabled", slog.String("op", op))
	}

	gw := gateway.New(log, repo, blobs, live, cfg.Feed.RequestTimeout.Duration)

	return &App{
		log:     log,
		DB:      repo,
		Gateway: gw,
		Feed:    feed.New(log, gw, opts...),
	}, nil
}

// Start loads the feed and subscribes to live inserts. Failures are kept
// in the feed state and do not stop the client
func (a *App) Start(ctx context.Context) {
	const op = "wall.Start"
	log := a.log.With(slog.String("op", op))

	if err := a.Feed.Start(ctx); err != nil {
		log.Warn("feed started with errors", sl.Err(err))
		return
	}

	log.Info("feed started")
}

func (a *App) Stop() {
	const op = "wall.Stop"
	log := a.log.With(slog.String("op", op))
	log.Info("stopping client")

	if err := a.Feed.Close(); err != nil {
		log.Error("failed to close feed", sl.Err(err))
	}
	if err := a.DB.Stop(); err != nil {
		log.Error("failed to stop storage", sl.Err(err))
	}

	log.Info("client is stopped")
}
