// Package store is the storage service's durable key-value layer: the key
// layout, the pluggable backends, and the best-effort counters.
package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Get when a key is absent or expired.
var ErrNotFound = errors.New("store: key not found")

// KV is the contract every backend satisfies. Writes are last-write-wins;
// a zero ttl means no expiry.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}
