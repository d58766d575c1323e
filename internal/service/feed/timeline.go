package feed

import (
	"slices"
	"sort"

	"github.com/IlianBuh/Wall/internal/domain/models"
)

// timeline keeps posts newest first with unique ids
type timeline struct {
	posts []models.Post
	ids   map[int64]struct{}
}

func newTimeline() *timeline {
	return &timeline{ids: make(map[int64]struct{})}
}

// replace drops current content and fills the timeline with posts
func (t *timeline) replace(posts []models.Post) {
	t.posts = make([]models.Post, 0, len(posts))
	t.ids = make(map[int64]struct{}, len(posts))

	for _, p := range posts {
		t.insert(p)
	}
}

// insert puts the post at its place. A post with known id is ignored.
// Reports whether the timeline changed
func (t *timeline) insert(p models.Post) bool {
	if _, ok := t.ids[p.Id]; ok {
		return false
	}

	i := sort.Search(len(t.posts), func(i int) bool {
		return p.Newer(t.posts[i])
	})
	t.posts = slices.Insert(t.posts, i, p)
	t.ids[p.Id] = struct{}{}

	return true
}

func (t *timeline) snapshot() []models.Post {
	return slices.Clone(t.posts)
}

func (t *timeline) len() int {
	return len(t.posts)
}
