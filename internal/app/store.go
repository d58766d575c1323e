package app

import (
	"context"
	"fmt"

	cfgStorage "github.com/IlianBuh/Wall/internal/config/storage"
	"github.com/IlianBuh/Wall/internal/domain/models"
	"github.com/IlianBuh/Wall/internal/lib/errors"
	"github.com/IlianBuh/Wall/internal/storage"
	"github.com/IlianBuh/Wall/internal/storage/postgres"
	"github.com/IlianBuh/Wall/internal/storage/sqlite"
)

// Store is the post store together with its outbox
type Store interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	SavePost(ctx context.Context, message string, imageURL *string) (models.Post, error)
	EventPage(ctx context.Context, limit int) ([]models.Event, error)
	Reserve(ctx context.Context, ids []int64) error
	Release(ctx context.Context, ids []int64) error
	DeleteEvents(ctx context.Context, ids []int64) error
	Stop() error
}

var (
	_ Store = (*postgres.Storage)(nil)
	_ Store = (*sqlite.Storage)(nil)
)

// OpenStore opens the post store chosen by the driver and brings its schema up to date
func OpenStore(cfg cfgStorage.Config) (Store, error) {
	const op = "app.OpenStore"

	switch cfg.Driver {
	case cfgStorage.DriverPostgres:
		s, err := postgres.New(cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.Timeout)
		if err != nil {
			return nil, errors.Fail(op, err)
		}
		if err = s.Migrate(); err != nil {
			_ = s.Stop()
			return nil, errors.Fail(op, err)
		}
		return s, nil
	case cfgStorage.DriverSQLite:
		s, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, errors.Fail(op, err)
		}
		return s, nil
	}

	return nil, errors.Fail(op, fmt.Errorf("%w: %q", storage.ErrBadDriver, cfg.Driver))
}
