package s3freeze

import (
	"context"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/panyam/s3freeze/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocloud.dev/blob"
	"golang.org/x/sync/errgroup"

	// Bucket drivers for the url schemes Publish accepts
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
)

// Publisher uploads a finished export tree to a blob bucket.  Publishing is a
// copy step that runs after an export and never changes the local tree.
type Publisher struct {
	Bucket *blob.Bucket

	// Optional key prefix for every uploaded object
	Prefix string

	// Max concurrent uploads.  Defaults to 8.
	Concurrency int

	l *zap.Logger
}

// OpenPublisher opens the bucket at bucketURL (eg file:///srv/site or mem://).
func OpenPublisher(ctx context.Context, bucketURL, prefix string, l *zap.Logger) (*Publisher, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, errors.Wrapf(err, "opening bucket %s", bucketURL)
	}
	return NewPublisher(bucket, prefix, l), nil
}

// NewPublisher wraps an already open bucket.
func NewPublisher(bucket *blob.Bucket, prefix string, l *zap.Logger) *Publisher {
	if l == nil {
		l = zap.NewNop()
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}
	return &Publisher{Bucket: bucket, Prefix: prefix, Concurrency: 8, l: l.Named("publisher")}
}

func (p *Publisher) key(rel string) string {
	return p.Prefix + rel
}

// Publish uploads every file under dir and returns the uploaded keys, relative
// to the prefix, in lexical order.  The first failed upload cancels the rest.
func (p *Publisher) Publish(ctx context.Context, dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(fp string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, err := filepath.Rel(dir, fp)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", dir)
	}

	g, gCtx := errgroup.WithContext(ctx)
	limit := p.Concurrency
	if limit <= 0 {
		limit = 8
	}
	g.SetLimit(limit)
	for _, rel := range files {
		g.Go(func() error {
			err := p.upload(gCtx, dir, rel)
			if err != nil {
				metrics.PublishedObjectsCounter.WithLabelValues("error").Inc()
				return err
			}
			metrics.PublishedObjectsCounter.WithLabelValues("success").Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	p.l.Info("published export", zap.String("dir", dir), zap.String("prefix", p.Prefix), zap.Int("objects", len(files)))
	return files, nil
}

func (p *Publisher) upload(ctx context.Context, dir, rel string) error {
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		return errors.Wrapf(err, "reading %s", rel)
	}
	opts := &blob.WriterOptions{ContentType: mime.TypeByExtension(path.Ext(rel))}
	if opts.ContentType == "" {
		opts.ContentType = "application/octet-stream"
	}
	if err := p.Bucket.WriteAll(ctx, p.key(rel), data, opts); err != nil {
		return errors.Wrapf(err, "uploading %s", rel)
	}
	p.l.Debug("uploaded", zap.String("key", p.key(rel)), zap.Int("bytes", len(data)))
	return nil
}

// Close closes the underlying bucket.
func (p *Publisher) Close() error {
	return p.Bucket.Close()
}
