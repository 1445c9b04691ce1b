package cache

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
)

// Backend kinds accepted by Open.
const (
	KindDir    = "dir"
	KindMemory = "memory"
	KindGCS    = "gcs"
	KindRedis  = "redis"
)

// BackendConfig selects and configures a backend.
type BackendConfig struct {
	Kind  string // dir|memory|gcs|redis, default dir
	Dir   string
	GCS   GCSConfig
	Redis RedisConfig
}

// Open builds the configured backend. The returned close function releases
// any client Open created and is never nil.
func Open(ctx context.Context, cfg BackendConfig) (Backend, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Kind {
	case "", KindDir:
		b, err := NewDirBackend(cfg.Dir)
		if err != nil {
			return nil, noop, err
		}
		return b, noop, nil
	case KindMemory:
		return NewMemoryBackend(), noop, nil
	case KindGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("cache: create storage client: %w", err)
		}
		b, err := NewGCSBackend(client, cfg.GCS)
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return b, client.Close, nil
	case KindRedis:
		b, err := NewRedisBackend(ctx, cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		return b, b.Close, nil
	default:
		return nil, noop, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Kind)
	}
}

// Pinger is implemented by backends that can check remote reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
