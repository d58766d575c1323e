package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/IlianBuh/Wall/internal/app"
	"github.com/IlianBuh/Wall/internal/config"
	"github.com/IlianBuh/Wall/internal/lib/logger/sl"
	"github.com/IlianBuh/Wall/internal/lib/validate"
	"github.com/IlianBuh/Wall/internal/service/gateway"
	"github.com/brianvoe/gofakeit"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var (
		count      int
		imageRatio int
	)

	flag.IntVar(&count, "n", 20, "number of posts to create")
	flag.IntVar(&imageRatio, "images", 25, "percent of posts with an image link")
	cfg := config.New()

	log := setUpLogger(cfg.Env, os.Stdout)

	repo, err := app.OpenStore(cfg.Storage)
	if err != nil {
		log.Error("failed to open storage", sl.Err(err))
		os.Exit(1)
	}
	defer repo.Stop()

	gw := gateway.New(log, repo, nil, nil, cfg.Feed.RequestTimeout.Duration)

	gofakeit.Seed(time.Now().UnixNano())

	created := 0
	for range count {
		message, imageURL := fakePost(imageRatio)

		post, err := gw.CreatePost(context.Background(), message, imageURL)
		if err != nil {
			log.Error("failed to create post", sl.Err(err))
			continue
		}
		created++
		log.Debug("post is created", slog.Int64("post-id", post.Id))
	}

	log.Info("seeding is done", slog.Int("created", created), slog.Int("requested", count))
}

// fakePost returns random message within the length limit and optional image link
func fakePost(imageRatio int) (string, *string) {
	message := gofakeit.Sentence(gofakeit.Number(3, 40))
	if validate.Remaining(message) < 0 {
		runes := []rune(message)
		message = string(runes[:validate.MaxMessageLength])
	}

	if gofakeit.Number(1, 100) > imageRatio {
		return message, nil
	}

	url := fmt.Sprintf("https://picsum.photos/seed/%s/640/480", gofakeit.Word())
	return message, &url
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
