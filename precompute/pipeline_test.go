package precompute

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"

	"github.com/janelia-flyem/mosaic/mosaic"
	"github.com/janelia-flyem/mosaic/storage"
)

var (
	testTileShape = mosaic.Point2d{8, 8}
	testExtents   = []mosaic.Point2d{{20, 30}, {10, 15}, {5, 7}}
	testShape     = VolumeShape{Channels: 2, Times: 1, Levels: 3, Grid: mosaic.Point3d{1, 3, 4}}
)

// testSource serves a 2 channel, 3 level pyramid with partial edge tiles.  Tile
// (channel 1, level 0, row 0, col 0) is missing.
func testSource() storage.TileSource {
	return storage.SourceFunc(func(ctx context.Context, key storage.TileKey) (storage.Result, error) {
		if key.Channel == 1 && key.Level == 0 && key.Row == 0 && key.Col == 0 {
			return storage.Absent, nil
		}
		if key.Channel >= 2 || key.Level >= len(testExtents) || key.Z != 0 || key.Time != 0 {
			return storage.Absent, nil
		}
		extent := testExtents[key.Level]
		h := min(testTileShape[0], extent[0]-key.Row*testTileShape[0])
		w := min(testTileShape[1], extent[1]-key.Col*testTileShape[1])
		if h <= 0 || w <= 0 {
			return storage.Absent, nil
		}
		buf := mosaic.NewPixelBuffer(mosaic.Point2d{h, w}, mosaic.Uint8)
		for i := range buf.Pix {
			buf.Pix[i] = uint16(10*key.Channel + key.Level + i)
		}
		return storage.Present(buf), nil
	})
}

func TestPipelineDescriptor(t *testing.T) {
	w := NewBucketWriter(memblob.OpenBucket(nil))
	defer w.Close()
	p := NewPipeline(testSource(), testShape, testTileShape, w, Options{})
	d, err := p.Descriptor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []mosaic.Point3d{{1, 20, 30}, {1, 10, 15}, {1, 5, 7}}, d.VoxelShapes)
	assert.Equal(t, EncodingJPEG, d.Encoding)
	assert.Equal(t, mosaic.Uint8, d.DataType)
}

func TestPipelineRun(t *testing.T) {
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	w := NewBucketWriter(bucket)
	defer w.Close()

	p := NewPipeline(testSource(), testShape, testTileShape, w, Options{Encoding: EncodingPNG, Concurrency: 4})
	summary, err := p.Run(ctx)
	require.NoError(t, err)

	// 12 + 4 + 1 tiles per channel, one missing
	assert.Equal(t, uint64(33), summary.Written)
	assert.Equal(t, uint64(1), summary.Absent)
	assert.Zero(t, summary.Failed)
	assert.Zero(t, summary.Skipped)
	assert.NotZero(t, summary.Bytes)

	for c := 0; c < 2; c++ {
		data, err := bucket.ReadAll(ctx, ChannelPath(c, InfoName))
		require.NoError(t, err)
		var vol Volume
		require.NoError(t, json.Unmarshal(data, &vol))
		require.Len(t, vol.Scales, 3)
		assert.Equal(t, [3]int32{30, 20, 1}, vol.Scales[0].Size)
		assert.Equal(t, "png", vol.Scales[0].Encoding)
	}

	// the last tile of level 0 is 4x6
	data, err := bucket.ReadAll(ctx, "0/0/24-30_16-20_0-1")
	require.NoError(t, err)
	buf, err := storage.DecodeTile(data)
	require.NoError(t, err)
	want, err := testSource().Load(ctx, storage.TileKey{Row: 2, Col: 3})
	require.NoError(t, err)
	assert.Equal(t, want.Pixels(), buf)

	exists, err := bucket.Exists(ctx, "1/0/0-8_0-8_0-1")
	require.NoError(t, err)
	assert.False(t, exists, "absent tile must not be written")

	// a second run skips everything already written
	summary, err = p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(33), summary.Skipped)
	assert.Equal(t, uint64(1), summary.Absent)
	assert.Zero(t, summary.Written)

	p = NewPipeline(testSource(), testShape, testTileShape, w, Options{Encoding: EncodingPNG, Overwrite: true})
	summary, err = p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(33), summary.Written)
	assert.Zero(t, summary.Skipped)
}

// orderWriter records writes and fails chunks whose path matches failPath.
type orderWriter struct {
	mu       sync.Mutex
	paths    []string
	failPath string
}

func (w *orderWriter) Exists(ctx context.Context, path string) (bool, error) {
	return false, nil
}

func (w *orderWriter) Write(ctx context.Context, path string, data []byte, gzipped bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paths = append(w.paths, path)
	if path == w.failPath {
		return &mosaic.WriteError{Path: path, Err: errors.New("quota exceeded")}
	}
	return nil
}

func (w *orderWriter) Close() error { return nil }

func TestPipelineDescriptorFirst(t *testing.T) {
	w := &orderWriter{failPath: "0/1/0-8_0-8_0-1"}
	p := NewPipeline(testSource(), testShape, testTileShape, w, Options{Encoding: EncodingRaw, Gzip: true, Concurrency: 8})
	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), summary.Failed)
	assert.Equal(t, uint64(32), summary.Written)

	require.True(t, len(w.paths) > 2)
	assert.Equal(t, []string{"0/info", "1/info"}, w.paths[:2])
	for _, path := range w.paths[2:] {
		assert.False(t, strings.HasSuffix(path, InfoName), "descriptor written after chunks: %s", path)
	}
}

func TestPipelineMissingLastTile(t *testing.T) {
	src := storage.SourceFunc(func(ctx context.Context, key storage.TileKey) (storage.Result, error) {
		return storage.Absent, nil
	})
	w := &orderWriter{}
	_, err := NewPipeline(src, testShape, testTileShape, w, Options{}).Run(context.Background())
	assert.True(t, errors.Is(err, mosaic.ErrTileUnavailable), "got %v", err)
	assert.Empty(t, w.paths, "nothing may be written without a descriptor")
}

func TestPipelineBadOptions(t *testing.T) {
	w := &orderWriter{}
	_, err := NewPipeline(testSource(), testShape, testTileShape, w, Options{Time: 1}).Run(context.Background())
	assert.True(t, mosaic.IsConfigError(err))

	// 8-bit source cannot be forced into an unknown encoding
	_, err = NewPipeline(testSource(), testShape, testTileShape, w, Options{Encoding: "gif"}).Run(context.Background())
	assert.True(t, mosaic.IsConfigError(err))
	assert.Empty(t, w.paths)
}
