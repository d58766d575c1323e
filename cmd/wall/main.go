package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/IlianBuh/Wall/internal/app/wall"
	"github.com/IlianBuh/Wall/internal/config"
	"github.com/IlianBuh/Wall/internal/lib/logger/sl"
	"github.com/IlianBuh/Wall/internal/service/feed"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.New()

	// stdout belongs to the wall
	log := setUpLogger(cfg.Env, os.Stderr)

	log.Info("logger was initialized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	changed := make(chan struct{}, 1)
	notify := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}

	application, err := wall.New(ctx, log, cfg, feed.WithNotify(notify))
	if err != nil {
		log.Error("failed to init client", sl.Err(err))
		os.Exit(1)
	}

	application.Start(ctx)

	t := newTerminal(application.Feed, os.Stdout)
	t.printFeed()
	t.printHelp()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
				t.refresh()
			}
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			if !t.handle(ctx, line) {
				break loop
			}
		}
	}

	application.Stop()
}

// setUpLogger returns set logger according to current environment
func setUpLogger(env string, w io.Writer) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
