package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"

	"github.com/janelia-flyem/mosaic/mosaic"
)

// putTiles stores a 2 channel, 2 level pyramid of 4x6 tiles with a 3x2 grid at level 0.
func putTiles(t *testing.T, ctx context.Context, bucket *blob.Bucket) {
	tileShape := mosaic.Point2d{4, 6}
	for c := 0; c < 2; c++ {
		for l := 0; l < 2; l++ {
			rows, cols := int32(3), int32(2)
			if l == 1 {
				rows, cols = 2, 1
			}
			for y := int32(0); y < rows; y++ {
				for x := int32(0); x < cols; x++ {
					data, err := EncodePNG(testBuffer(tileShape, mosaic.Uint8))
					require.NoError(t, err)
					key := TileKey{Channel: c, Level: l, Row: y, Col: x}
					require.NoError(t, bucket.WriteAll(ctx, TileName(key, "png"), data, nil))
				}
			}
		}
	}
	require.NoError(t, bucket.WriteAll(ctx, "README.txt", []byte("not a tile"), nil))
}

func TestIndexBucket(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	putTiles(t, ctx, bucket)

	idx, err := IndexBucket(ctx, bucket, "")
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Channels)
	assert.Equal(t, 1, idx.Times)
	assert.Equal(t, 2, idx.Levels)
	assert.Equal(t, 1, idx.Depth)
	assert.Equal(t, mosaic.Point2d{3, 2}, idx.Grid)
	assert.Equal(t, mosaic.Point2d{4, 6}, idx.TileShape)
	assert.Equal(t, mosaic.Uint8, idx.DataType)
	assert.Equal(t, "png", idx.Ext)
	assert.Equal(t, mosaic.Point3d{1, 12, 12}, idx.FullShape())
}

func TestIndexBucketFirstTile(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	// shape and sample type come from the decoded first tile
	data, err := EncodePNG(testBuffer(mosaic.Point2d{5, 7}, mosaic.Uint16))
	require.NoError(t, err)
	require.NoError(t, bucket.WriteAll(ctx, TileName(TileKey{}, "png"), data, nil))
	idx, err := IndexBucket(ctx, bucket, "")
	require.NoError(t, err)
	assert.Equal(t, mosaic.Point2d{5, 7}, idx.TileShape)
	assert.Equal(t, mosaic.Uint16, idx.DataType)
	assert.Contains(t, idx.String(), "(1,5,7)")

	require.NoError(t, bucket.WriteAll(ctx, TileName(TileKey{}, "png"), []byte("not a png"), nil))
	_, err = IndexBucket(ctx, bucket, "")
	assert.Error(t, err)
}

func TestIndexEmptyBucket(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	_, err := IndexBucket(ctx, bucket, "")
	assert.True(t, mosaic.IsConfigError(err), "expected config error, got %v", err)
}

func TestBucketFetcher(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	putTiles(t, ctx, bucket)

	src := NewDecoder(NewBucketFetcher(bucket, "", ""))
	res, err := src.Load(ctx, TileKey{Channel: 1, Row: 2, Col: 1})
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, testBuffer(mosaic.Point2d{4, 6}, mosaic.Uint8), res.Pixels())

	// beyond the grid and beyond the channels
	for _, key := range []TileKey{{Row: 3}, {Col: 2}, {Channel: 2}, {Level: 5}} {
		res, err := src.Load(ctx, key)
		require.NoError(t, err)
		assert.False(t, res.Found(), "tile %s", key)
	}
}

func TestOpenTilesDirectory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	buf := testBuffer(mosaic.Point2d{8, 8}, mosaic.Uint16)
	data, err := EncodePNG(buf)
	require.NoError(t, err)
	for _, key := range []TileKey{{}, {Row: 1}, {Col: 1}, {Row: 1, Col: 1}} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, TileName(key, "png")), data, 0644))
	}

	tiles, err := OpenTiles(ctx, dir)
	require.NoError(t, err)
	defer tiles.Close()

	assert.Equal(t, mosaic.Point2d{2, 2}, tiles.Index.Grid)
	assert.Equal(t, mosaic.Uint16, tiles.Index.DataType)

	res, err := NewDecoder(tiles).Load(ctx, TileKey{Row: 1, Col: 1})
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, buf, res.Pixels())
}

func TestOpenBucketBadRef(t *testing.T) {
	_, err := OpenBucket(context.Background(), "vast://only-endpoint")
	assert.True(t, mosaic.IsConfigError(err))

	_, err = OpenBucket(context.Background(), "ftp://somewhere")
	assert.True(t, mosaic.IsConfigError(err))
}
