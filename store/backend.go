// Package store provides the durable key-value layer for the catalog.
package store

import (
	"context"
	"errors"
)

// Backend is a synchronous key-value mechanism that may be unavailable or
// fail on any call. Values are opaque bytes; the Storage adapter owns the
// encoding.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

var (
	// ErrUnavailable is returned by a backend that is disabled.
	ErrUnavailable = errors.New("store: backend unavailable")
	// ErrQuotaExceeded is returned when a write would exceed the backend quota.
	ErrQuotaExceeded = errors.New("store: quota exceeded")
	// ErrInvalidKey is returned for keys a backend cannot address.
	ErrInvalidKey = errors.New("store: invalid key")
)
