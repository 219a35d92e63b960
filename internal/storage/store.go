package storage

import "context"

// Store is the narrow object-storage contract snapshots are written
// through. Production deployments point this at a bucket; the filesystem
// implementation below is the default.
type Store interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
	URL(path string) string
}
