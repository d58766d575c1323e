package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/IlianBuh/Wall/internal/config/blob"
	worker "github.com/IlianBuh/Wall/internal/config/event-worker"
	"github.com/IlianBuh/Wall/internal/config/feed"
	"github.com/IlianBuh/Wall/internal/config/grpcobj"
	"github.com/IlianBuh/Wall/internal/config/kafka"
	"github.com/IlianBuh/Wall/internal/config/metrics"
	"github.com/IlianBuh/Wall/internal/config/storage"
)

type Config struct {
	Env         string          `json:"env"`
	Storage     storage.Config  `json:"storage"`
	Blob        blob.Config     `json:"blob"`
	Kafka       kafka.Config    `json:"kafka"`
	EventWorker worker.Config   `json:"event-worker"`
	GRPC        grpcobj.GRPCObj `json:"grpc"`
	Metrics     metrics.Config  `json:"metrics"`
	Feed        feed.Config     `json:"feed"`
}

const (
	defaultConfigPath = "./config/config.json"
)

// New creates new object of applications' configuration
func New() *Config {
	path := fetchConfigPath()

	cfg := MustLoad(path)

	return cfg
}

// MustLoad is wrapper of load function to panic if error occurred
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic("failed to load config file: " + err.Error())
	}

	return cfg
}

// Load loads config from json file by path. Return error if occurred
func Load(path string) (*Config, error) {
	cfg := new(Config)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	jsonContent, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	err = json.Unmarshal(jsonContent, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg.setDefaults()

	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = storage.DriverPostgres
	}
	if c.Blob.Bucket == "" {
		c.Blob.Bucket = blob.DefaultBucket
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = kafka.DefaultTopic
	}
	if c.EventWorker.PageSize <= 0 {
		c.EventWorker.PageSize = worker.DefaultPageSize
	}
	if c.EventWorker.Interval.Duration <= 0 {
		c.EventWorker.Interval.Duration = worker.DefaultInterval
	}
	if c.EventWorker.Timeout.Duration <= 0 {
		c.EventWorker.Timeout.Duration = worker.DefaultTimeout
	}
}

// fetchConfigPath fetches config path from either flag 'config' or environment variable.
// If both are empty default value will be returned
// flag > env > default
//
// flags of the calling program must be declared before
func fetchConfigPath() string {
	res := ""

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res != "" {
		return res
	}

	res = os.Getenv("CONFIG_PATH")
	if res != "" {
		return res
	}

	return defaultConfigPath
}
