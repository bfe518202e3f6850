package precompute

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"

	"github.com/janelia-flyem/mosaic/mosaic"
	"github.com/janelia-flyem/mosaic/storage"
)

// Writer persists the files of a precomputed volume.  Paths are slash separated and
// relative to the root of the volume.  A failed write never leaves a partial file
// visible at its path.
type Writer interface {
	// Exists returns true if a file has already been written at the path.
	Exists(ctx context.Context, path string) (bool, error)

	// Write stores data at the path, replacing any existing file.  Errors are
	// *mosaic.WriteError.
	Write(ctx context.Context, path string, data []byte, gzipped bool) error

	Close() error
}

// NewWriter returns a FileWriter for local directories and a BucketWriter for bucket
// references like gs://bucket/prefix.
func NewWriter(ctx context.Context, ref string) (Writer, error) {
	if storage.IsBucketRef(ref) && !strings.HasPrefix(ref, "file://") {
		bucket, err := storage.OpenBucket(ctx, ref)
		if err != nil {
			return nil, err
		}
		return NewBucketWriter(bucket), nil
	}
	return NewFileWriter(strings.TrimPrefix(ref, "file://"))
}

// FileWriter writes into a local directory using write-then-rename.
type FileWriter struct {
	root string
}

// NewFileWriter creates the root directory if necessary.
func NewFileWriter(root string) (*FileWriter, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := mosaic.EnsureDir(abs); err != nil {
		return nil, &mosaic.WriteError{Path: abs, Err: err}
	}
	return &FileWriter{root: abs}, nil
}

func (w *FileWriter) fullPath(path string) string {
	return filepath.Join(w.root, filepath.FromSlash(path))
}

func (w *FileWriter) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(w.fullPath(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (w *FileWriter) Write(ctx context.Context, path string, data []byte, gzipped bool) error {
	full := w.fullPath(path)
	if err := mosaic.EnsureDir(filepath.Dir(full)); err != nil {
		return &mosaic.WriteError{Path: full, Err: err}
	}
	return storage.WriteBytesAtomic(full, data)
}

func (w *FileWriter) Close() error {
	return nil
}

// BucketWriter writes objects into a gocloud bucket.  An object only becomes visible
// when its writer closes without error.
type BucketWriter struct {
	bucket *blob.Bucket
}

// NewBucketWriter takes ownership of the bucket and closes it on Close.
func NewBucketWriter(bucket *blob.Bucket) *BucketWriter {
	return &BucketWriter{bucket: bucket}
}

func (w *BucketWriter) Exists(ctx context.Context, path string) (bool, error) {
	return w.bucket.Exists(ctx, path)
}

func (w *BucketWriter) Write(ctx context.Context, path string, data []byte, gzipped bool) error {
	opts := &blob.WriterOptions{ContentType: "application/octet-stream"}
	if gzipped {
		opts.ContentEncoding = "gzip"
	}
	if path == InfoName || strings.HasSuffix(path, "/"+InfoName) {
		opts.ContentType = "application/json"
	}

	// canceling the writer's context before Close discards the object
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	bw, err := w.bucket.NewWriter(wctx, path, opts)
	if err != nil {
		return &mosaic.WriteError{Path: path, Err: err}
	}
	if _, err := bw.Write(data); err != nil {
		cancel()
		bw.Close()
		return &mosaic.WriteError{Path: path, Err: err}
	}
	if err := bw.Close(); err != nil {
		return &mosaic.WriteError{Path: path, Err: err}
	}
	return nil
}

func (w *BucketWriter) Close() error {
	return w.bucket.Close()
}

type monitoredWriter struct {
	Writer
	m *storage.Monitor
}

func (w monitoredWriter) Write(ctx context.Context, path string, data []byte, gzipped bool) error {
	if err := w.Writer.Write(ctx, path, data, gzipped); err != nil {
		return err
	}
	w.m.Written(len(data))
	return nil
}

// MonitorWriter reports the size of every successful write to m.
func MonitorWriter(w Writer, m *storage.Monitor) Writer {
	return monitoredWriter{Writer: w, m: m}
}
