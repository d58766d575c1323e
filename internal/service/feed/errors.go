package feed

import (
	"errors"
)

var (
	ErrRejected = errors.New("draft can't be submitted")
	ErrInFlight = errors.New("submission is already in flight")
	ErrClosed   = errors.New("controller is closed")
)
