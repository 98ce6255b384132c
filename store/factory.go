package store

import (
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options configures NewBackend. Only the fields relevant to the chosen
// kind are read.
type Options struct {
	// file
	Dir string
	// sqlite
	DSN string
	// redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	Timeout       time.Duration
	// memory
	Quota int
}

// NewBackend constructs a Backend by kind: "memory", "file", "redis" or "sqlite".
func NewBackend(kind string, opts Options) (Backend, error) {
	switch kind {
	case "memory", "mem":
		return NewMemoryBackend(opts.Quota), nil
	case "file":
		if opts.Dir == "" {
			return nil, fmt.Errorf("directory required for file store")
		}
		return NewFileBackend(opts.Dir)
	case "redis":
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("address required for redis store")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		return NewRedisBackend(client, opts.RedisPrefix, opts.Timeout), nil
	case "sqlite":
		if opts.DSN == "" {
			return nil, fmt.Errorf("dsn required for sqlite store")
		}
		return OpenSQLiteBackend(opts.DSN)
	default:
		return nil, fmt.Errorf("unknown store kind: %s", kind)
	}
}

// Close releases backends that hold connections. Others are a no-op.
func Close(b Backend) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
