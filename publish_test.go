package s3freeze

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"
)

func newTestPublisher(t *testing.T, prefix string) *Publisher {
	t.Helper()
	bucket, err := blob.OpenBucket(context.Background(), "mem://")
	require.NoError(t, err)
	t.Cleanup(func() { bucket.Close() })
	return NewPublisher(bucket, prefix, zaptest.NewLogger(t))
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, data := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(data), 0644))
	}
	return dir
}

func TestPublisher_UploadsTree(t *testing.T) {
	ctx := context.Background()
	dir := writeTree(t, map[string]string{
		"index.html":                  "<p>home</p>",
		"static/css/site.css":         "body{}",
		"removed-binaries/archive.db": "\x00\x01",
	})
	p := newTestPublisher(t, "site")
	p.Concurrency = 2

	keys, err := p.Publish(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"index.html", "removed-binaries/archive.db", "static/css/site.css"}, keys)

	data, err := p.Bucket.ReadAll(ctx, "site/index.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>home</p>", string(data))

	attrs, err := p.Bucket.Attributes(ctx, "site/static/css/site.css")
	require.NoError(t, err)
	assert.Contains(t, attrs.ContentType, "text/css")

	attrs, err = p.Bucket.Attributes(ctx, "site/removed-binaries/archive.db")
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", attrs.ContentType)
}

func TestPublisher_MissingDir(t *testing.T) {
	p := newTestPublisher(t, "")
	_, err := p.Publish(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestPublisher_CancelledContext(t *testing.T) {
	dir := writeTree(t, map[string]string{"index.html": "x"})
	p := newTestPublisher(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Publish(ctx, dir)
	assert.Error(t, err)
}

func TestOpenPublisher_FileBucket(t *testing.T) {
	ctx := context.Background()
	dir := writeTree(t, map[string]string{"about.html": "<p>about</p>"})
	target := t.TempDir()

	p, err := OpenPublisher(ctx, "file://"+filepath.ToSlash(target), "", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Publish(ctx, dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(target, "about.html"))
}
