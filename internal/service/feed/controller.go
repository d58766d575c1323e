package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IlianBuh/Wall/internal/domain/models"
	errs "github.com/IlianBuh/Wall/internal/lib/errors"
	"github.com/IlianBuh/Wall/internal/lib/logger/sl"
	"github.com/IlianBuh/Wall/internal/lib/validate"
	"github.com/IlianBuh/Wall/internal/service/gateway"
)

type Gateway interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	CreatePost(ctx context.Context, message string, imageURL *string) (models.Post, error)
	UploadImage(ctx context.Context, data []byte, name, mediaType string) (string, error)
	Subscribe(ctx context.Context) (gateway.Subscription, error)
}

// State is a snapshot of the controller
type State struct {
	Posts     []models.Post
	Message   string
	File      *models.File
	Preview   *models.Preview
	InFlight  bool
	Remaining int
	CanSubmit bool
	// LastErr is the error of the last submission: [gateway.ErrUpload] or [gateway.ErrWrite]
	LastErr error
	// LoadErr is set if the initial load failed
	LoadErr error
	// LiveErr is set if the live channel failed or dropped
	LiveErr error
}

type Option func(c *Controller)

// WithNotify sets function called after every change of the state
func WithNotify(notify func()) Option {
	return func(c *Controller) {
		c.notify = notify
	}
}

// WithClock sets time source used for upload names
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.namer = newNamer(now)
	}
}

// WithPreview replaces preview renderer
func WithPreview(preview PreviewFunc) Option {
	return func(c *Controller) {
		c.preview = preview
	}
}

// Controller owns the feed and the draft. Handlers are safe to call
// from any goroutine; gateway calls run without the lock held
type Controller struct {
	log     *slog.Logger
	gw      Gateway
	notify  func()
	namer   *namer
	preview PreviewFunc

	mu            sync.Mutex
	feed          *timeline
	draft         models.Draft
	inFlight      bool
	lastErr       error
	loadErr       error
	liveErr       error
	closed        bool
	subscribing   bool
	sub           gateway.Subscription
	subDone       chan struct{}
	selection     uint64
	previewCancel context.CancelFunc
	// loading counts running loads, arrived keeps posts inserted meanwhile
	loading int
	arrived []models.Post
}

func New(log *slog.Logger, gw Gateway, opts ...Option) *Controller {
	c := &Controller{
		log:     log,
		gw:      gw,
		notify:  func() {},
		namer:   newNamer(time.Now),
		preview: DataURLPreview,
		feed:    newTimeline(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start loads the feed and then subscribes to live inserts.
// Failures are kept in the state, the first one is returned
func (c *Controller) Start(ctx context.Context) error {
	const op = "feed.Start"

	loadErr := c.Load(ctx)
	liveErr := c.Subscribe(ctx)
	if loadErr != nil {
		return errs.Fail(op, loadErr)
	}
	if liveErr != nil {
		return errs.Fail(op, liveErr)
	}

	return nil
}

// Load replaces the feed with posts from the store. Posts inserted while
// the fetch runs are kept. On failure the feed holds only those posts and
// the error is kept until the next successful load
func (c *Controller) Load(ctx context.Context) error {
	const op = "feed.Load"
	log := c.log.With(slog.String("op", op))

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errs.Fail(op, ErrClosed)
	}
	c.loading++
	c.mu.Unlock()

	posts, err := c.gw.ListPosts(ctx)

	c.mu.Lock()
	arrived := c.arrived
	c.loading--
	if c.loading == 0 {
		c.arrived = nil
	}
	if c.closed {
		c.mu.Unlock()
		return errs.Fail(op, ErrClosed)
	}
	if err != nil {
		c.loadErr = err
		c.feed.replace(nil)
		c.restore(arrived)
		c.mu.Unlock()
		c.notify()

		log.Error("failed to load feed", sl.Err(err))
		return errs.Fail(op, err)
	}
	c.loadErr = nil
	c.feed.replace(posts)
	c.restore(arrived)
	count := c.feed.len()
	c.mu.Unlock()
	c.notify()

	log.Info("feed is loaded", slog.Int("count", count))
	return nil
}

// restore puts back posts inserted while the feed was being fetched.
// Must be called with the lock held
func (c *Controller) restore(arrived []models.Post) {
	for _, p := range arrived {
		c.feed.insert(p)
	}
}

// put inserts the post into the feed and remembers it for running loads.
// Must be called with the lock held
func (c *Controller) put(post models.Post) bool {
	if c.loading > 0 {
		c.arrived = append(c.arrived, post)
	}

	return c.feed.insert(post)
}

// Subscribe opens the live channel. ctx bounds the subscription lifetime.
// Calling it while subscribed does nothing
func (c *Controller) Subscribe(ctx context.Context) error {
	const op = "feed.Subscribe"
	log := c.log.With(slog.String("op", op))

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errs.Fail(op, ErrClosed)
	}
	if c.subscribing || c.sub != nil {
		c.mu.Unlock()
		return nil
	}
	c.subscribing = true
	c.mu.Unlock()

	sub, err := c.gw.Subscribe(ctx)

	c.mu.Lock()
	c.subscribing = false
	if err != nil {
		c.liveErr = err
		c.mu.Unlock()
		c.notify()

		log.Error("failed to subscribe", sl.Err(err))
		return errs.Fail(op, err)
	}
	if c.closed {
		c.mu.Unlock()
		_ = sub.Close()
		return errs.Fail(op, ErrClosed)
	}
	done := make(chan struct{})
	c.sub, c.subDone, c.liveErr = sub, done, nil
	c.mu.Unlock()
	c.notify()

	go c.listen(sub, done)

	log.Info("subscribed to live inserts")
	return nil
}

func (c *Controller) listen(sub gateway.Subscription, done chan struct{}) {
	const op = "feed.listen"
	log := c.log.With(slog.String("op", op))
	defer close(done)

	for post := range sub.Posts() {
		c.insert(post)
	}

	err := sub.Err()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.sub == sub {
		c.sub, c.subDone = nil, nil
	}
	if err != nil {
		c.liveErr = errs.Fail(op, fmt.Errorf("%w: %w", gateway.ErrSubscription, err))
	}
	c.mu.Unlock()

	_ = sub.Close()

	if err == nil {
		log.Info("live channel ended")
		return
	}

	c.notify()
	log.Error("live channel dropped", sl.Err(err))
}

// insert adds post delivered by the live channel
func (c *Controller) insert(post models.Post) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	changed := c.put(post)
	c.mu.Unlock()

	if changed {
		c.notify()
		return
	}
	c.log.Debug("duplicate post is ignored", slog.Int64("post-id", post.Id))
}

// Close releases the live subscription and cancels pending preview.
// No live insert is applied after Close returns
func (c *Controller) Close() error {
	const op = "feed.Close"

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sub, done := c.sub, c.subDone
	c.sub = nil
	c.cancelPreview()
	c.mu.Unlock()

	if sub == nil {
		return nil
	}

	err := sub.Close()
	<-done
	if err != nil {
		return errs.Fail(op, err)
	}

	return nil
}

// Submit posts the draft: uploads the selected file if any, then creates
// the post. On success the draft is cleared and the post is put to the feed.
// On failure the draft stays as is and the error is kept in the state.
//
// Returns [ErrRejected] without calling the gateway if the draft is blank
// or too long, [ErrInFlight] if another submission is running
func (c *Controller) Submit(ctx context.Context) (models.Post, error) {
	const op = "feed.Submit"
	log := c.log.With(slog.String("op", op))

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return models.Post{}, errs.Fail(op, ErrClosed)
	}
	if c.inFlight {
		c.mu.Unlock()
		return models.Post{}, errs.Fail(op, ErrInFlight)
	}
	if err := validate.Message(c.draft.Message, c.draft.File != nil); err != nil {
		c.mu.Unlock()
		log.Debug("draft is rejected", sl.Err(err))
		return models.Post{}, errs.Fail(op, fmt.Errorf("%w: %w", ErrRejected, err))
	}
	c.inFlight = true
	c.lastErr = nil
	message, file := c.draft.Message, c.draft.File
	c.mu.Unlock()
	c.notify()

	var imageURL *string
	if file != nil {
		name := c.namer.next(file.Name)
		url, err := c.gw.UploadImage(ctx, file.Data, name, file.MediaType)
		if err != nil {
			log.Warn("failed to upload image", sl.Err(err))
			return models.Post{}, c.fail(op, err)
		}
		imageURL = &url
	}

	post, err := c.gw.CreatePost(ctx, message, imageURL)
	if err != nil {
		log.Warn("failed to create post", sl.Err(err))
		return models.Post{}, c.fail(op, err)
	}

	c.mu.Lock()
	c.inFlight = false
	c.draft = models.Draft{}
	c.selection++
	c.cancelPreview()
	if !c.closed {
		c.put(post)
	}
	c.mu.Unlock()
	c.notify()

	log.Info("post is submitted", slog.Int64("post-id", post.Id))
	return post, nil
}

// fail ends the submission keeping the draft
func (c *Controller) fail(op string, err error) error {
	c.mu.Lock()
	c.inFlight = false
	c.lastErr = err
	c.mu.Unlock()
	c.notify()

	return errs.Fail(op, err)
}

// SetMessage replaces the draft message. Error of the previous
// submission is cleared
func (c *Controller) SetMessage(message string) {
	c.mu.Lock()
	c.draft.Message = message
	if errors.Is(c.lastErr, gateway.ErrUpload) || errors.Is(c.lastErr, gateway.ErrWrite) {
		c.lastErr = nil
	}
	c.mu.Unlock()
	c.notify()
}

// SelectFile replaces the selected file. Preview of an image is rendered
// in background and dropped if the selection changes first
func (c *Controller) SelectFile(f models.File) {
	const op = "feed.SelectFile"

	f.MediaType = mediaType(f)

	c.mu.Lock()
	c.cancelPreview()
	c.selection++
	selection := c.selection
	c.draft.File = &f
	c.draft.Preview = nil

	var ctx context.Context
	if isImage(f.MediaType) && !c.closed {
		ctx, c.previewCancel = context.WithCancel(context.Background())
	}
	c.mu.Unlock()
	c.notify()

	if ctx == nil {
		c.log.Debug("no preview for the file", slog.String("op", op), slog.String("media-type", f.MediaType))
		return
	}

	go c.renderPreview(ctx, selection, f)
}

func (c *Controller) renderPreview(ctx context.Context, selection uint64, f models.File) {
	const op = "feed.renderPreview"

	preview, err := c.preview(ctx, f)

	c.mu.Lock()
	if c.selection != selection || ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.cancelPreview()
	if err != nil {
		c.mu.Unlock()
		c.log.Warn("failed to render preview", slog.String("op", op), sl.Err(err))
		return
	}
	c.draft.Preview = &preview
	c.mu.Unlock()
	c.notify()
}

// ClearFile drops the selected file and its preview
func (c *Controller) ClearFile() {
	c.mu.Lock()
	c.cancelPreview()
	c.selection++
	c.draft.File = nil
	c.draft.Preview = nil
	c.mu.Unlock()
	c.notify()
}

// cancelPreview must be called with the lock held
func (c *Controller) cancelPreview() {
	if c.previewCancel != nil {
		c.previewCancel()
		c.previewCancel = nil
	}
}

// Remaining returns how many characters can still be typed, may be negative
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return validate.Remaining(c.draft.Message)
}

// CanSubmit reports whether Submit would start a submission
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.canSubmit()
}

func (c *Controller) canSubmit() bool {
	return !c.closed && !c.inFlight && validate.Message(c.draft.Message, c.draft.File != nil) == nil
}

// State returns a snapshot of the controller
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		Posts:     c.feed.snapshot(),
		Message:   c.draft.Message,
		File:      c.draft.File,
		Preview:   c.draft.Preview,
		InFlight:  c.inFlight,
		Remaining: validate.Remaining(c.draft.Message),
		CanSubmit: c.canSubmit(),
		LastErr:   c.lastErr,
		LoadErr:   c.loadErr,
		LiveErr:   c.liveErr,
	}
}
