package feed

import (
	"testing"
	"time"

	"github.com/IlianBuh/Wall/internal/domain/models"
	"github.com/stretchr/testify/require"
)

func TestTimelineInsert(t *testing.T) {
	tl := newTimeline()

	require.True(t, tl.insert(post(1, "a", baseTime)))
	require.True(t, tl.insert(post(3, "c", baseTime.Add(2*time.Minute))))
	require.True(t, tl.insert(post(2, "b", baseTime.Add(time.Minute))))
	require.False(t, tl.insert(post(2, "b again", baseTime.Add(time.Hour))))

	require.Equal(t, []int64{3, 2, 1}, ids(tl.snapshot()))
	require.Equal(t, 3, tl.len())
}

func TestTimelineTieBrokenById(t *testing.T) {
	tl := newTimeline()
	tl.replace([]models.Post{post(1, "a", baseTime), post(5, "e", baseTime), post(3, "c", baseTime)})

	require.Equal(t, []int64{5, 3, 1}, ids(tl.snapshot()))
}

func TestTimelineReplace(t *testing.T) {
	tl := newTimeline()
	tl.insert(post(9, "old", baseTime))

	tl.replace([]models.Post{post(1, "a", baseTime), post(1, "a", baseTime)})
	require.Equal(t, []int64{1}, ids(tl.snapshot()))

	// ids of dropped posts are forgotten
	require.True(t, tl.insert(post(9, "old", baseTime)))
}

func TestTimelineSnapshotIsCopy(t *testing.T) {
	tl := newTimeline()
	tl.insert(post(1, "a", baseTime))

	snap := tl.snapshot()
	snap[0].Message = "changed"

	require.Equal(t, "a", tl.snapshot()[0].Message)
}
