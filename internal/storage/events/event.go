package events

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/IlianBuh/Wall/internal/domain/models"
	e "github.com/IlianBuh/Wall/internal/lib/errors"
)

// CollectEventPayload encodes the created post as change-feed payload
func CollectEventPayload(post models.Post) (string, error) {
	const op = "event.CollectEventPayload"

	payload, err := json.Marshal(post)
	if err != nil {
		return "", e.Fail(op, err)
	}

	return string(payload), nil
}

// ParsePayload decodes change-feed payload back to the post
func ParsePayload(payload []byte) (models.Post, error) {
	const op = "event.ParsePayload"

	var post models.Post
	if err := json.Unmarshal(payload, &post); err != nil {
		return models.Post{}, e.Fail(op, err)
	}
	if post.Id <= 0 {
		return models.Post{}, e.Fail(op, fmt.Errorf("invalid post id %d", post.Id))
	}

	return post, nil
}

// CollectEventKey returns key of the message, all events of one post share it
func CollectEventKey(postId int64) string {
	return strconv.FormatInt(postId, 10)
}
