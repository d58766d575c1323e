package storage

import (
	"errors"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrExists    = errors.New("object already exists")
	ErrNoEvents  = errors.New("no events")
	ErrClose     = errors.New("failed to close database")
	ErrBadDriver = errors.New("unknown storage driver")
)
