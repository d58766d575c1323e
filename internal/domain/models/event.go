package models

import (
	"time"
)

const (
	EventPostCreated = "post.created"
)

// Event is an outbox record waiting to be relayed to the change feed
type Event struct {
	Id        int64
	Type      string
	Payload   string
	CreatedAt time.Time
}
