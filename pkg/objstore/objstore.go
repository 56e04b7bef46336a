// Package objstore is the gateway to the archive bucket. Two backends
// implement the same interface: the S3 bucket used in production and a
// local directory mirror used for development and tests.
package objstore

import (
	"context"
	"io"
	"time"
)

// RestoreState reports where a cold object is in its restoration cycle.
type RestoreState string

const (
	RestoreNone      RestoreState = "none"
	RestoreRestoring RestoreState = "restoring"
	RestoreAvailable RestoreState = "available"
)

// RestoreTier selects how fast (and how expensive) a restoration runs.
type RestoreTier string

const (
	TierStandard  RestoreTier = "Standard"
	TierExpedited RestoreTier = "Expedited"
	TierBulk      RestoreTier = "Bulk"
)

// ObjectInfo is the result of a Head call.
type ObjectInfo struct {
	Size         int64
	LastModified time.Time
	// IsCold is true when the object sits in an archival storage class and
	// cannot be read without a restore.
	IsCold       bool
	RestoreState RestoreState
}

// Store is the uniform object-store contract used by the document pipeline.
// All writes are streamed; implementations must not buffer whole objects.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Head(ctx context.Context, key string) (*ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Copy(ctx context.Context, srcKey, dstKey string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	InitiateRestore(ctx context.Context, key string, tier RestoreTier) error
}
