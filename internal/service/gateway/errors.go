package gateway

import (
	"errors"
)

var (
	ErrFetch        = errors.New("failed to load posts")
	ErrWrite        = errors.New("failed to save post")
	ErrUpload       = errors.New("failed to upload image")
	ErrSubscription = errors.New("live channel failed")
)
