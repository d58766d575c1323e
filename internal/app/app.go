package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	grpcapp "github.com/IlianBuh/Wall/internal/app/app"
	cfgEventWorker "github.com/IlianBuh/Wall/internal/config/event-worker"
	"github.com/IlianBuh/Wall/internal/config/grpcobj"
	cfgKafka "github.com/IlianBuh/Wall/internal/config/kafka"
	cfgMetrics "github.com/IlianBuh/Wall/internal/config/metrics"
	cfgStorage "github.com/IlianBuh/Wall/internal/config/storage"
	"github.com/IlianBuh/Wall/internal/lib/logger/sl"
	"github.com/IlianBuh/Wall/internal/lib/metrics"
	eventworker "github.com/IlianBuh/Wall/internal/service/event-worker"
	"github.com/IlianBuh/Wall/internal/transport/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// App is the outbox relay: it publishes committed posts to the change feed
type App struct {
	log           *slog.Logger
	DB            Store
	EventWorker   *eventworker.Worker
	GRPCApp       *grpcapp.App
	EventProducer *kafka.Producer
	MetricsServer *http.Server
}

func New(
	ctx context.Context,
	log *slog.Logger,
	cfgGRPC grpcobj.GRPCObj,
	cfgStrg cfgStorage.Config,
	cfgKafka cfgKafka.Config,
	cfgEventWorker cfgEventWorker.Config,
	cfgMetrics cfgMetrics.Config,
) *App {
	const op = "app.New"
	fail := func(err error) {
		panic(op + ": " + err.Error())
	}

	repo, err := OpenStore(cfgStrg)
	if err != nil {
		fail(err)
	}

	producer, err := kafka.NewProducer(
		ctx,
		log,
		cfgKafka.Addrs,
		cfgKafka.Topic,
		cfgKafka.Timeout,
		cfgKafka.Retries,
	)
	if err != nil {
		_ = repo.Stop()
		fail(err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	worker := eventworker.New(
		log,
		cfgEventWorker.PageSize,
		repo,
		repo,
		repo,
		repo,
		producer,
		cfgEventWorker.Interval.Duration,
		cfgEventWorker.Timeout.Duration,
		metrics.NewRelay(reg),
	)

	var metricsServer *http.Server
	if cfgMetrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsServer = &http.Server{
			Addr:              cfgMetrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return &App{
		log:           log,
		DB:            repo,
		GRPCApp:       grpcapp.New(log, cfgGRPC.Port),
		EventWorker:   worker,
		EventProducer: producer,
		MetricsServer: metricsServer,
	}
}

func (a *App) Start(ctx context.Context) {
	const op = "app.Start"
	log := a.log.With(slog.String("op", op))
	log.Info("starting application")

	a.EventWorker.Start(ctx)

	go a.GRPCApp.MustRun()

	if a.MetricsServer != nil {
		go func() {
			err := a.MetricsServer.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", sl.Err(err))
			}
		}()
	}

	a.GRPCApp.SetServing(true)

	log.Info("application started")
}

func (a *App) Stop() {
	const op = "app.Stop"
	log := a.log.With(slog.String("op", op))
	log.Info("stopping application")

	a.GRPCApp.SetServing(false)

	// the worker uses producer and storage, so it stops first
	a.EventWorker.Stop()

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		a.EventProducer.Stop()
	}()
	go func() {
		defer wg.Done()
		if err := a.DB.Stop(); err != nil {
			log.Error("failed to stop storage", sl.Err(err))
		}
	}()
	go func() {
		defer wg.Done()
		a.GRPCApp.Stop()
	}()

	if a.MetricsServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cncl := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cncl()
			if err := a.MetricsServer.Shutdown(ctx); err != nil {
				log.Error("failed to stop metrics server", sl.Err(err))
			}
		}()
	}

	wg.Wait()

	log.Info("application is stopped")
}
