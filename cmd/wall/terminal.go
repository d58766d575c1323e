package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/IlianBuh/Wall/internal/domain/models"
	"github.com/IlianBuh/Wall/internal/service/feed"
	"github.com/IlianBuh/Wall/internal/service/gateway"
)

const timeFormat = "2006-01-02 15:04"

// terminal binds the feed controller to line input
type terminal struct {
	feed *feed.Controller
	out  io.Writer

	mu      sync.Mutex
	shown   map[int64]struct{}
	liveErr error
	preview bool
}

func newTerminal(c *feed.Controller, out io.Writer) *terminal {
	return &terminal{
		feed:  c,
		out:   out,
		shown: make(map[int64]struct{}),
	}
}

// handle executes one input line. Returns false when the user quits
func (t *terminal) handle(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")

	switch cmd {
	case "":
	case "/quit", "/exit":
		return false
	case "/help":
		t.printHelp()
	case "/feed":
		t.printFeed()
	case "/draft":
		t.printDraft()
	case "/clear":
		t.feed.ClearFile()
		t.printf("file is dropped\n")
	case "/file":
		t.selectFile(strings.TrimSpace(arg))
	case "/post":
		t.submit(ctx)
	case "/reload":
		if err := t.feed.Load(ctx); err != nil {
			t.printf("! could not load the wall: %v\n", err)
			return true
		}
		t.printFeed()
	default:
		t.feed.SetMessage(line)
		t.printf("%d characters left\n", t.feed.Remaining())
	}

	return true
}

func (t *terminal) selectFile(path string) {
	if path == "" {
		t.printf("usage: /file <path>\n")
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.printf("! could not read file: %v\n", err)
		return
	}

	t.mu.Lock()
	t.preview = false
	t.mu.Unlock()

	t.feed.SelectFile(models.File{
		Name:      filepath.Base(path),
		MediaType: mime.TypeByExtension(filepath.Ext(path)),
		Data:      data,
	})

	st := t.feed.State()
	t.printf("file %s is selected (%s, %d bytes)\n", st.File.Name, st.File.MediaType, len(st.File.Data))
}

func (t *terminal) submit(ctx context.Context) {
	post, err := t.feed.Submit(ctx)
	switch {
	case err == nil:
		t.printf("posted #%d\n", post.Id)
		t.refresh()
	case errors.Is(err, feed.ErrRejected):
		t.printf("! nothing to post or the message is too long (%d left)\n", t.feed.Remaining())
	case errors.Is(err, feed.ErrInFlight):
		t.printf("! previous post is still being sent\n")
	case errors.Is(err, gateway.ErrUpload):
		t.printf("! could not upload the image, try again: %v\n", err)
	case errors.Is(err, gateway.ErrWrite):
		t.printf("! could not save the post, try again: %v\n", err)
	default:
		t.printf("! %v\n", err)
	}
}

// refresh prints posts not shown yet and changes of the live channel
func (t *terminal) refresh() {
	st := t.feed.State()

	t.mu.Lock()
	defer t.mu.Unlock()

	// oldest first so the newest ends up at the bottom of the terminal
	for i := len(st.Posts) - 1; i >= 0; i-- {
		p := st.Posts[i]
		if _, ok := t.shown[p.Id]; ok {
			continue
		}
		t.shown[p.Id] = struct{}{}
		fmt.Fprintf(t.out, "+ %s\n", formatPost(p))
	}

	if st.LiveErr != nil && t.liveErr == nil {
		fmt.Fprintf(t.out, "! live updates stopped: %v\n", st.LiveErr)
	}
	t.liveErr = st.LiveErr

	if st.Preview != nil && !t.preview {
		fmt.Fprintf(t.out, "preview is ready (%s, %d chars)\n", st.Preview.MediaType, len(st.Preview.DataURL))
	}
	t.preview = st.Preview != nil
}

func (t *terminal) printFeed() {
	st := t.feed.State()

	t.mu.Lock()
	defer t.mu.Unlock()

	if st.LoadErr != nil {
		fmt.Fprintf(t.out, "! could not load the wall: %v\n", st.LoadErr)
	}
	if len(st.Posts) == 0 {
		fmt.Fprintln(t.out, "the wall is empty")
	}
	for _, p := range st.Posts {
		t.shown[p.Id] = struct{}{}
		fmt.Fprintln(t.out, formatPost(p))
	}
}

func (t *terminal) printDraft() {
	st := t.feed.State()

	var b strings.Builder
	fmt.Fprintf(&b, "message: %q (%d left)\n", st.Message, st.Remaining)
	if st.File != nil {
		fmt.Fprintf(&b, "file: %s (%s)\n", st.File.Name, st.File.MediaType)
	}
	if st.InFlight {
		b.WriteString("sending...\n")
	}
	if st.LastErr != nil {
		fmt.Fprintf(&b, "last error: %v\n", st.LastErr)
	}
	fmt.Fprintf(&b, "can post: %t\n", st.CanSubmit)

	t.printf("%s", b.String())
}

func (t *terminal) printHelp() {
	t.printf(`type a line to set the message
/file <path>  attach an image
/clear        drop the attached file
/draft        show the draft
/post         post the draft
/feed         show the wall
/reload       load the wall again
/quit         leave
`)
}

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, format, args...)
}

func formatPost(p models.Post) string {
	s := fmt.Sprintf("[#%d %s] %s", p.Id, p.CreatedAt.Local().Format(timeFormat), p.Message)
	if p.ImageURL != nil {
		s += " (image: " + *p.ImageURL + ")"
	}

	return s
}
