package models

import (
	"time"
)

// Post is a feed entry. It is never changed after the store created it
type Post struct {
	Id        int64     `json:"id"`
	Message   string    `json:"message"`
	ImageURL  *string   `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Newer reports whether p goes before other in newest-first order.
// Posts created at the same moment are ordered by id
func (p Post) Newer(other Post) bool {
	if p.CreatedAt.Equal(other.CreatedAt) {
		return p.Id > other.Id
	}

	return p.CreatedAt.After(other.CreatedAt)
}
