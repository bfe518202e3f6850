package storage

import (
	"context"
	"sync/atomic"

	"github.com/coocood/freecache"
	"github.com/golang/snappy"

	"github.com/janelia-flyem/mosaic/mosaic"
)

// CachedSource keeps decoded tiles, snappy compressed, in a freecache.  Absent
// tiles are remembered as empty entries so repeated misses do not reach the
// underlying source.  Transport errors are never cached.
type CachedSource struct {
	src   TileSource
	cache *freecache.Cache

	hits   uint64
	misses uint64
}

// NewCachedSource wraps src with a cache of roughly mbs megabytes.
func NewCachedSource(src TileSource, mbs int) *CachedSource {
	numBytes := mbs << 20
	mosaic.Infof("Created freecache of ~ %d MB for decoded tiles.\n", mbs)
	return &CachedSource{
		src:   src,
		cache: freecache.NewCache(numBytes),
	}
}

// Load returns the cached tile or loads it from the wrapped source.
func (c *CachedSource) Load(ctx context.Context, key TileKey) (Result, error) {
	k := []byte(key.String())
	val, err := c.cache.Get(k)
	if err == nil {
		if len(val) == 0 {
			atomic.AddUint64(&c.hits, 1)
			return Absent, nil
		}
		if buf, err := unpackTile(val); err == nil {
			atomic.AddUint64(&c.hits, 1)
			return Present(buf), nil
		} else {
			mosaic.Errorf("dropping corrupt cached tile %s: %v\n", key, err)
			c.cache.Del(k)
		}
	} else if err != freecache.ErrNotFound {
		return Absent, err
	}
	atomic.AddUint64(&c.misses, 1)

	res, err := c.src.Load(ctx, key)
	if err != nil {
		return res, err
	}
	var packed []byte
	if res.Found() {
		if packed, err = packTile(res.Pixels()); err != nil {
			return res, nil
		}
	}
	if err := c.cache.Set(k, packed, 0); err != nil {
		mosaic.Debugf("unable to cache tile %s: %v\n", key, err)
	}
	return res, nil
}

// HitRate returns hits and misses since creation.
func (c *CachedSource) HitRate() (hits, misses uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses)
}

func packTile(buf *mosaic.PixelBuffer) ([]byte, error) {
	data, err := buf.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, data), nil
}

func unpackTile(packed []byte) (*mosaic.PixelBuffer, error) {
	data, err := snappy.Decode(nil, packed)
	if err != nil {
		return nil, err
	}
	buf := new(mosaic.PixelBuffer)
	if err := buf.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return buf, nil
}
