package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janelia-flyem/mosaic/mosaic"
)

// countingSource returns a buffer for row 0, absent for row 1 and an error otherwise.
type countingSource struct {
	loads int64
	buf   *mosaic.PixelBuffer
}

func (s *countingSource) Load(ctx context.Context, key TileKey) (Result, error) {
	atomic.AddInt64(&s.loads, 1)
	switch key.Row {
	case 0:
		return Present(s.buf), nil
	case 1:
		return Absent, nil
	default:
		return Absent, &mosaic.TransportError{Op: "load", Err: errors.New("unreachable")}
	}
}

func TestCachedSource(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{buf: testBuffer(mosaic.Point2d{8, 8}, mosaic.Uint16)}
	cache := NewCachedSource(src, 4)

	for i := 0; i < 3; i++ {
		res, err := cache.Load(ctx, TileKey{Row: 0})
		require.NoError(t, err)
		require.True(t, res.Found())
		assert.Equal(t, src.buf, res.Pixels())
	}
	for i := 0; i < 3; i++ {
		res, err := cache.Load(ctx, TileKey{Row: 1})
		require.NoError(t, err)
		assert.False(t, res.Found())
	}
	assert.Equal(t, int64(2), src.loads)
	hits, misses := cache.HitRate()
	assert.Equal(t, uint64(4), hits)
	assert.Equal(t, uint64(2), misses)

	// errors are passed through and not cached
	for i := 0; i < 2; i++ {
		_, err := cache.Load(ctx, TileKey{Row: 2})
		assert.Error(t, err)
	}
	assert.Equal(t, int64(4), src.loads)
}

type countingFetcher struct {
	mu      sync.Mutex
	fetches map[TileKey]int
	data    []byte
}

func (f *countingFetcher) Fetch(ctx context.Context, key TileKey) ([]byte, error) {
	f.mu.Lock()
	f.fetches[key]++
	f.mu.Unlock()
	if key.Col > 0 {
		return nil, nil
	}
	return f.data, nil
}

func TestGroupcacheFetcher(t *testing.T) {
	data, err := EncodePNG(testBuffer(mosaic.Point2d{8, 8}, mosaic.Uint8))
	require.NoError(t, err)
	f := &countingFetcher{fetches: make(map[TileKey]int), data: data}
	gc := NewGroupcacheFetcher(f, 1<<20)
	src := NewDecoder(gc)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := TileKey{Row: int32(i % 4), Col: int32(i % 2)}
			res, err := src.Load(ctx, key)
			assert.NoError(t, err)
			assert.Equal(t, key.Col == 0, res.Found(), "tile %s", key)
		}(i)
	}
	wg.Wait()

	// a second pass is served entirely from the cache
	for i := 0; i < 4; i++ {
		_, err := src.Load(ctx, TileKey{Row: int32(i), Col: int32(i % 2)})
		require.NoError(t, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, n := range f.fetches {
		assert.Equal(t, 1, n, "tile %s fetched %d times", key, n)
	}
	assert.Len(t, f.fetches, 4)
}
