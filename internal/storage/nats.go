package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/ivlev/verse2video/internal/config"
)

// NATSPublisher stores videos in a JetStream object store bucket.
type NATSPublisher struct {
	conn   *nats.Conn
	bucket string
	prefix string
	store  nats.ObjectStore
}

func NewNATSPublisher(cfg config.Publish) (*NATSPublisher, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}
	url := cfg.NATSURL
	if url == "" {
		url = nats.DefaultURL
	}

	conn, err := nats.Connect(url, nats.Name("verse2video"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}

	store, err := openObjectStore(js, cfg.Bucket)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &NATSPublisher{conn: conn, bucket: cfg.Bucket, prefix: cfg.Prefix, store: store}, nil
}

// openObjectStore creates the bucket, or binds to it when it already exists.
func openObjectStore(js nats.JetStreamContext, bucket string) (nats.ObjectStore, error) {
	store, err := js.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucket,
		Description: "Rendered verse videos.",
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err == nil {
		return store, nil
	}
	if !errors.Is(err, jetstream.ErrBucketExists) && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucket, err)
	}

	store, err = js.ObjectStore(bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to bind to existing object store bucket '%s': %w", bucket, err)
	}
	return store, nil
}

func (n *NATSPublisher) Publish(ctx context.Context, key, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	objKey := objectKey(n.prefix, key)
	_, err = n.store.Put(&nats.ObjectMeta{
		Name:        objKey,
		Description: "video/mp4",
	}, f, nats.Context(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to put object '%s' to bucket '%s': %w", objKey, n.bucket, err)
	}
	return fmt.Sprintf("nats://%s/%s", n.bucket, objKey), nil
}

// Fetch reads back the object Publish stored under key.
func (n *NATSPublisher) Fetch(ctx context.Context, key string) ([]byte, error) {
	objKey := objectKey(n.prefix, key)
	obj, err := n.store.Get(objKey, nats.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", objKey, n.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()
	if readErr != nil {
		return nil, fmt.Errorf("failed to read object '%s': %w", key, readErr)
	}
	if closeErr != nil {
		return data, fmt.Errorf("failed to close object '%s': %w", key, closeErr)
	}
	return data, nil
}

func (n *NATSPublisher) Close() error {
	n.conn.Close()
	return nil
}
