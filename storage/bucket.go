package storage

import (
	"context"

	"gocloud.dev/blob"

	"github.com/janelia-flyem/mosaic/mosaic"
)

// BucketFetcher reads tiles named by TileName from a bucket, which may be a local
// directory opened through fileblob.
type BucketFetcher struct {
	bucket *blob.Bucket
	prefix string
	ext    string
}

// NewBucketFetcher returns a fetcher for tiles stored under prefix with the given
// extension.  An empty extension uses DefaultExt.
func NewBucketFetcher(bucket *blob.Bucket, prefix, ext string) *BucketFetcher {
	if ext == "" {
		ext = DefaultExt
	}
	return &BucketFetcher{bucket: bucket, prefix: prefix, ext: ext}
}

// Fetch returns the encoded tile or nil if it is not stored.
func (f *BucketFetcher) Fetch(ctx context.Context, key TileKey) ([]byte, error) {
	name := f.prefix + TileName(key, f.ext)
	data, err := f.bucket.ReadAll(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, &mosaic.TransportError{Op: "read " + name, Err: err}
	}
	return data, nil
}

// Tiles is an opened store of tiles together with its index.
type Tiles struct {
	*BucketFetcher
	Index *Index
}

// OpenTiles opens a directory or bucket reference of stored tiles and indexes it.
// The caller must Close the result.
func OpenTiles(ctx context.Context, ref string) (*Tiles, error) {
	bucket, err := OpenBucket(ctx, ref)
	if err != nil {
		return nil, err
	}
	idx, err := IndexBucket(ctx, bucket, "")
	if err != nil {
		bucket.Close()
		return nil, err
	}
	mosaic.Infof("Opened tiles @ %q: %s\n", ref, idx)
	return &Tiles{
		BucketFetcher: NewBucketFetcher(bucket, "", idx.Ext),
		Index:         idx,
	}, nil
}

// Close releases the underlying bucket.
func (f *BucketFetcher) Close() error {
	return f.bucket.Close()
}
