package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/IlianBuh/Wall/internal/storage"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	PublicURL string
}

// Storage keeps uploaded images in one bucket. Objects are never overwritten
type Storage struct {
	cfg     Config
	client  *minio.Client
	baseURL *url.URL
}

func New(cfg Config) (*Storage, error) {
	const op = "s3.New"

	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	cl, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fail(op, err)
	}

	base, err := publicBase(cfg, cl.EndpointURL())
	if err != nil {
		return nil, fail(op, err)
	}

	return &Storage{cfg: cfg, client: cl, baseURL: base}, nil
}

// EnsureBucket creates the bucket if it does not exist
func (s *Storage) EnsureBucket(ctx context.Context) error {
	const op = "s3.EnsureBucket"

	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fail(op, err)
	}
	if !exists {
		if err = s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return fail(op, err)
		}
	}

	return nil
}

// Put stores data under key and returns public URL of the object.
// The write is conditional: the store itself refuses to overwrite an
// existing key and [storage.ErrExists] is returned
func (s *Storage) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	const op = "s3.Put"

	opts := minio.PutObjectOptions{ContentType: contentType}
	opts.SetMatchETagExcept("*")

	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key,
		bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		if isConflict(err) {
			return "", fail(op, fmt.Errorf("%w: %s", storage.ErrExists, key))
		}
		return "", fail(op, err)
	}

	return s.URL(key), nil
}

// URL resolves public link of the object
func (s *Storage) URL(key string) string {
	return s.baseURL.JoinPath(s.cfg.Bucket, key).String()
}

// isConflict reports whether a conditional write failed because the key exists
func isConflict(err error) bool {
	resp := minio.ToErrorResponse(err)

	switch {
	case resp.Code == "PreconditionFailed", resp.StatusCode == http.StatusPreconditionFailed:
		return true
	case resp.Code == "ConditionalRequestConflict":
		return true
	}

	return false
}

func publicBase(cfg Config, endpoint *url.URL) (*url.URL, error) {
	if cfg.PublicURL == "" {
		return endpoint, nil
	}

	return url.Parse(strings.TrimSuffix(cfg.PublicURL, "/"))
}

func fail(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
