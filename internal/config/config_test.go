package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `{
		"env": "local",
		"storage": {"driver": "sqlite", "path": "wall.db"},
		"blob": {"endpoint": "localhost:9000", "access-key": "minio", "secret-key": "minio123"},
		"kafka": {"addrs": ["localhost:9092"], "timeout": 5, "retries": 3},
		"event-worker": {"page-size": 50, "interval": "500ms", "timeout": "5s"},
		"grpc": {"port": 44044, "timeout": "10s"},
		"metrics": {"addr": ":9100"},
		"feed": {"request-timeout": "15s"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "local", cfg.Env)
	require.Equal(t, "sqlite", cfg.Storage.Driver)
	require.Equal(t, "wall.db", cfg.Storage.Path)
	require.Equal(t, "posts", cfg.Blob.Bucket)
	require.Equal(t, "posts.inserted", cfg.Kafka.Topic)
	require.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Addrs)
	require.Equal(t, 50, cfg.EventWorker.PageSize)
	require.Equal(t, 500*time.Millisecond, cfg.EventWorker.Interval.Duration)
	require.Equal(t, 44044, cfg.GRPC.Port)
	require.Equal(t, ":9100", cfg.Metrics.Addr)
	require.Equal(t, 15*time.Second, cfg.Feed.RequestTimeout.Duration)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{"env": "prod"}`))
	require.NoError(t, err)

	require.Equal(t, "postgres", cfg.Storage.Driver)
	require.Equal(t, 100, cfg.EventWorker.PageSize)
	require.Equal(t, time.Second, cfg.EventWorker.Interval.Duration)
	require.Equal(t, 5*time.Second, cfg.EventWorker.Timeout.Duration)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, `{"env": `))
	require.Error(t, err)

	require.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.json")) })
}
