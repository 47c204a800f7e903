// Package storage publishes finished videos to remote object stores.
package storage

import (
	"context"
	"fmt"
	"path"

	"github.com/ivlev/verse2video/internal/config"
)

// Publisher uploads a local file under key and returns where it landed.
type Publisher interface {
	Publish(ctx context.Context, key, filePath string) (string, error)
	Close() error
}

// New builds the publisher selected by cfg.Backend. An empty backend means
// publishing is off and New returns nil, nil.
func New(ctx context.Context, cfg config.Publish) (Publisher, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "s3":
		return NewS3Publisher(ctx, cfg)
	case "nats":
		return NewNATSPublisher(cfg)
	default:
		return nil, fmt.Errorf("unknown publish backend: %s", cfg.Backend)
	}
}

func objectKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}
