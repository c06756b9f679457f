package storage

import "context"

// ObjectStore is the durable bytes-in/bytes-out contract shared by the
// ingress handler (source uploads, result downloads) and the consumer
// (source fetch, result writes). Implementations return
// domain.ErrNotFound for missing keys.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}
