// Package archive keeps a write-once copy of documents, such as every
// invoice event, on the local filesystem or in an S3-compatible bucket.
package archive

import (
	"context"
	"io"

	"github.com/dukerupert/fulfillment/internal"
)

// Store defines the operations an archive backend provides.
type Store interface {
	// Put stores content under key and returns its location.
	// The key is a slash-separated path such as "invoices/2025/03/x.json".
	Put(ctx context.Context, key string, content io.Reader, contentType string) (string, error)

	// Get retrieves a document by its key. The caller closes it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if a document exists at the given key.
	Exists(ctx context.Context, key string) (bool, error)
}

// New creates the Store selected by cfg.Provider. An empty provider means
// archiving is disabled and New returns nil.
func New(ctx context.Context, cfg internal.ArchiveConfig) (Store, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "local":
		store, err := NewLocalStore(cfg.LocalPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "s3":
		store, err := NewS3Store(ctx, S3Config{
			Bucket:      cfg.S3Bucket,
			Region:      cfg.S3Region,
			Endpoint:    cfg.S3Endpoint,
			AccessKeyID: cfg.S3AccessKeyID,
			SecretKey:   cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, ErrUnknownProvider(cfg.Provider)
	}
}
