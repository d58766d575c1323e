package worker

import (
	"time"

	"github.com/IlianBuh/Wall/internal/config/duration"
)

const (
	DefaultPageSize = 100
	DefaultInterval = time.Second
	DefaultTimeout  = 5 * time.Second
)

type Config struct {
	PageSize int               `json:"page-size"`
	Interval duration.Duration `json:"interval"`
	Timeout  duration.Duration `json:"timeout"`
}
