package feed

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// namer derives object names for uploads: strictly increasing millisecond
// stamp followed by the cleaned original file name
type namer struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

func newNamer(now func() time.Time) *namer {
	return &namer{now: now}
}

func (n *namer) next(fileName string) string {
	n.mu.Lock()
	stamp := n.now().UnixMilli()
	if stamp <= n.last {
		stamp = n.last + 1
	}
	n.last = stamp
	n.mu.Unlock()

	return fmt.Sprintf("%d_%s", stamp, cleanName(fileName))
}

func cleanName(fileName string) string {
	base := filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if base == "." || base == "/" {
		base = ""
	}

	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		}
		return '_'
	}, base)

	if strings.Trim(clean, "._") == "" {
		return "image"
	}

	return clean
}
