package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/verse2video/internal/config"
)

// startTestServer starts an in-memory NATS server with JetStream enabled.
func startTestServer(t *testing.T) *server.Server {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	s := test.RunServer(&opts)
	t.Cleanup(s.Shutdown)
	return s
}

func writeVideo(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "abc_output.mp4")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	p, err := New(ctx, config.Publish{})
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = New(ctx, config.Publish{Backend: "ftp"})
	require.Error(t, err)

	_, err = New(ctx, config.Publish{Backend: "s3"})
	assert.ErrorIs(t, err, ErrNoBucket)

	_, err = New(ctx, config.Publish{Backend: "nats"})
	assert.ErrorIs(t, err, ErrNoBucket)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "a.mp4", objectKey("", "a.mp4"))
	assert.Equal(t, "videos/2026/a.mp4", objectKey("videos/2026/", "a.mp4"))
}

func TestNATSPublisher(t *testing.T) {
	s := startTestServer(t)
	ctx := context.Background()
	cfg := config.Publish{Backend: "nats", Bucket: "verse-videos", Prefix: "out", NATSURL: s.ClientURL()}

	p, err := New(ctx, cfg)
	require.NoError(t, err)
	defer p.Close()

	loc, err := p.Publish(ctx, "abc_output.mp4", writeVideo(t, "fake mp4 bytes"))
	require.NoError(t, err)
	assert.Equal(t, "nats://verse-videos/out/abc_output.mp4", loc)

	// a second publisher binds to the existing bucket
	again, err := NewNATSPublisher(cfg)
	require.NoError(t, err)
	defer again.Close()

	// Fetch takes the same key Publish did; the prefix is applied once
	data, err := again.Fetch(ctx, "abc_output.mp4")
	require.NoError(t, err)
	assert.Equal(t, "fake mp4 bytes", string(data))

	_, err = again.Fetch(ctx, "out/abc_output.mp4")
	assert.Error(t, err)
}

func TestNATSPublisherFetchWithoutPrefix(t *testing.T) {
	s := startTestServer(t)
	ctx := context.Background()
	p, err := NewNATSPublisher(config.Publish{Bucket: "plain", NATSURL: s.ClientURL()})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Publish(ctx, "v.mp4", writeVideo(t, "bytes"))
	require.NoError(t, err)

	data, err := p.Fetch(ctx, "v.mp4")
	require.NoError(t, err)
	assert.Equal(t, "bytes", string(data))
}

func TestNATSPublisherMissingFile(t *testing.T) {
	s := startTestServer(t)
	p, err := NewNATSPublisher(config.Publish{Bucket: "b", NATSURL: s.ClientURL()})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Publish(context.Background(), "x.mp4", filepath.Join(t.TempDir(), "absent.mp4"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestS3PublisherPutsObject(t *testing.T) {
	var mu sync.Mutex
	var gotPath, gotType string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.Method == http.MethodPut {
			gotPath = r.URL.Path
			gotType = r.Header.Get("Content-Type")
			gotBody, _ = io.ReadAll(r.Body)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	p, err := New(context.Background(), config.Publish{
		Backend:      "s3",
		Bucket:       "videos",
		Prefix:       "verses",
		Region:       "us-east-1",
		UsePathStyle: true,
		Endpoint:     srv.URL,
	})
	require.NoError(t, err)
	defer p.Close()

	loc, err := p.Publish(context.Background(), "abc_output.mp4", writeVideo(t, "mp4"))
	require.NoError(t, err)
	assert.Equal(t, "s3://videos/verses/abc_output.mp4", loc)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/videos/verses/abc_output.mp4", gotPath)
	assert.Equal(t, "video/mp4", gotType)
	assert.Contains(t, string(gotBody), "mp4")
}
