package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/iterator"
)

// GCSConfig configures the Cloud Storage backend.
type GCSConfig struct {
	Bucket string
	// Prefix is prepended to every object name, e.g. "insights/".
	Prefix string
	// Attempts bounds retries of each storage call.
	// Default: 3
	Attempts uint
}

// GCSBackend stores documents as objects in a Cloud Storage bucket.
type GCSBackend struct {
	client   *storage.Client
	bucket   string
	prefix   string
	attempts uint
}

// NewGCSBackend wraps an existing storage client. The caller owns client.
func NewGCSBackend(client *storage.Client, cfg GCSConfig) (*GCSBackend, error) {
	if client == nil {
		return nil, errors.New("cache: gcs client is nil")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("cache: gcs bucket is required")
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	return &GCSBackend{
		client:   client,
		bucket:   cfg.Bucket,
		prefix:   normalizePrefix(cfg.Prefix),
		attempts: cfg.Attempts,
	}, nil
}

func normalizePrefix(p string) string {
	p = strings.TrimPrefix(p, "/")
	if p != "" && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

func (b *GCSBackend) object(name string) *storage.ObjectHandle {
	return b.client.Bucket(b.bucket).Object(b.prefix + name)
}

func (b *GCSBackend) do(ctx context.Context, fn func() error) error {
	return retry.Do(fn,
		retry.Attempts(b.attempts),
		retry.Delay(200*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.Context(ctx),
	)
}

func (b *GCSBackend) Read(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := b.do(ctx, func() error {
		r, err := b.object(name).NewReader(ctx)
		if errors.Is(err, storage.ErrObjectNotExist) {
			return retry.Unrecoverable(ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("open storage reader: %w", err)
		}
		defer r.Close()

		data, err = io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("read from storage: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

// Write uploads data in one request. Cloud Storage makes an object visible
// only once the upload completes.
func (b *GCSBackend) Write(ctx context.Context, name string, data []byte) error {
	return b.do(ctx, func() error {
		w := b.object(name).NewWriter(ctx)
		w.ContentType = "application/json; charset=utf-8"
		if _, err := w.Write(data); err != nil {
			_ = w.Close()
			return fmt.Errorf("write to storage: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("close storage writer: %w", err)
		}
		return nil
	})
}

func (b *GCSBackend) Delete(ctx context.Context, name string) error {
	return b.do(ctx, func() error {
		err := b.object(name).Delete(ctx)
		if err == nil || errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("delete from storage: %w", err)
	})
}

func (b *GCSBackend) Names(ctx context.Context) ([]string, error) {
	var names []string
	err := b.do(ctx, func() error {
		names = names[:0]
		it := b.client.Bucket(b.bucket).Objects(ctx, &storage.Query{Prefix: b.prefix})
		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("iterate storage: %w", err)
			}
			name := strings.TrimPrefix(attrs.Name, b.prefix)
			if name == path.Base(name) && isDocumentName(name) {
				names = append(names, name)
			}
		}
	})
	return names, err
}

// Ping checks that the bucket is reachable.
func (b *GCSBackend) Ping(ctx context.Context) error {
	_, err := b.client.Bucket(b.bucket).Attrs(ctx)
	return err
}

func (b *GCSBackend) Location() string {
	return "gs://" + b.bucket + "/" + b.prefix
}

var _ Backend = (*GCSBackend)(nil)
