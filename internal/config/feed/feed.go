package feed

import (
	"github.com/IlianBuh/Wall/internal/config/duration"
)

type Config struct {
	RequestTimeout duration.Duration `json:"request-timeout"`
}
