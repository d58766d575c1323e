package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/IlianBuh/Wall/internal/domain/models"
	errs "github.com/IlianBuh/Wall/internal/lib/errors"
	"github.com/IlianBuh/Wall/internal/lib/logger/sl"
)

type PostStore interface {
	// ListPosts returns all posts, newest first
	ListPosts(ctx context.Context) ([]models.Post, error)
	// SavePost saves the post. Id and creation time are assigned by the store
	SavePost(ctx context.Context, message string, imageURL *string) (models.Post, error)
}

type BlobStore interface {
	// Put stores data under key without overwriting and returns public URL
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Subscription is a live stream of inserted posts
type Subscription interface {
	Posts() <-chan models.Post
	Err() error
	Close() error
}

type Subscriber interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// SubscriberFunc adapts a function to [Subscriber]
type SubscriberFunc func(ctx context.Context) (Subscription, error)

func (f SubscriberFunc) Subscribe(ctx context.Context) (Subscription, error) {
	return f(ctx)
}

// Gateway is the only way to persistent state: posts, images and the live channel.
// Every returned error wraps one of [ErrFetch], [ErrWrite], [ErrUpload] or [ErrSubscription]
type Gateway struct {
	log     *slog.Logger
	posts   PostStore
	blobs   BlobStore
	live    Subscriber
	timeout time.Duration
}

func New(
	log *slog.Logger,
	posts PostStore,
	blobs BlobStore,
	live Subscriber,
	timeout time.Duration,
) *Gateway {
	return &Gateway{
		log:     log,
		posts:   posts,
		blobs:   blobs,
		live:    live,
		timeout: timeout,
	}
}

// ListPosts loads the whole feed sorted newest first
func (g *Gateway) ListPosts(ctx context.Context) ([]models.Post, error) {
	const op = "gateway.ListPosts"
	log := g.log.With(slog.String("op", op))

	ctx, cncl := g.withTimeout(ctx)
	defer cncl()

	posts, err := g.posts.ListPosts(ctx)
	if err != nil {
		log.Error("failed to list posts", sl.Err(err))
		return nil, errs.Fail(op, tag(ErrFetch, err))
	}

	slices.SortStableFunc(posts, func(a, b models.Post) int {
		switch {
		case a.Newer(b):
			return -1
		case b.Newer(a):
			return 1
		}
		return 0
	})

	log.Debug("posts are loaded", slog.Int("count", len(posts)))
	return posts, nil
}

// CreatePost saves new post and returns it as the store created it
func (g *Gateway) CreatePost(ctx context.Context, message string, imageURL *string) (models.Post, error) {
	const op = "gateway.CreatePost"
	log := g.log.With(slog.String("op", op))

	ctx, cncl := g.withTimeout(ctx)
	defer cncl()

	post, err := g.posts.SavePost(ctx, message, imageURL)
	if err != nil {
		log.Error("failed to save post", sl.Err(err))
		return models.Post{}, errs.Fail(op, tag(ErrWrite, err))
	}

	log.Info("post is saved", slog.Int64("post-id", post.Id))
	return post, nil
}

// UploadImage stores image under name and returns its public URL.
// The name must be unique, existing objects are never replaced
func (g *Gateway) UploadImage(ctx context.Context, data []byte, name, mediaType string) (string, error) {
	const op = "gateway.UploadImage"
	log := g.log.With(slog.String("op", op), slog.String("name", name))

	if g.blobs == nil {
		return "", errs.Fail(op, tag(ErrUpload, fmt.Errorf("blob store is not configured")))
	}

	ctx, cncl := g.withTimeout(ctx)
	defer cncl()

	url, err := g.blobs.Put(ctx, name, mediaType, data)
	if err != nil {
		log.Error("failed to upload image", sl.Err(err))
		return "", errs.Fail(op, tag(ErrUpload, err))
	}

	log.Info("image is uploaded", slog.String("url", url))
	return url, nil
}

// Subscribe opens live channel of inserted posts. ctx bounds the subscription
// lifetime, so no request timeout is applied
func (g *Gateway) Subscribe(ctx context.Context) (Subscription, error) {
	const op = "gateway.Subscribe"
	log := g.log.With(slog.String("op", op))

	if g.live == nil {
		return nil, errs.Fail(op, tag(ErrSubscription, fmt.Errorf("live channel is not configured")))
	}

	sub, err := g.live.Subscribe(ctx)
	if err != nil {
		log.Error("failed to subscribe", sl.Err(err))
		return nil, errs.Fail(op, tag(ErrSubscription, err))
	}

	return sub, nil
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, g.timeout)
}

// tag keeps both the gateway kind and the cause visible to errors.Is
func tag(kind, cause error) error {
	return fmt.Errorf("%w: %w", kind, cause)
}
