package storage

import (
	"context"
	"fmt"

	"github.com/golang/groupcache"
	"github.com/twinj/uuid"

	"github.com/janelia-flyem/mosaic/mosaic"
)

// GroupcacheFetcher caches encoded tiles in a size-bounded groupcache group.
// Concurrent fetches of the same tile are collapsed into one underlying fetch.
type GroupcacheFetcher struct {
	group *groupcache.Group
}

// NewGroupcacheFetcher wraps a fetcher with a cache of up to cacheBytes.  Absent
// tiles are cached as empty values.
func NewGroupcacheFetcher(f Fetcher, cacheBytes int64) *GroupcacheFetcher {
	// group names must be unique within a process
	name := fmt.Sprintf("tiles-%x", uuid.NewV4().Bytes())
	group := groupcache.NewGroup(name, cacheBytes, groupcache.GetterFunc(
		func(ctx context.Context, key string, dest groupcache.Sink) error {
			tk, err := ParseTileKey(key)
			if err != nil {
				return err
			}
			data, err := f.Fetch(ctx, tk)
			if err != nil {
				return err
			}
			if data == nil {
				data = []byte{}
			}
			return dest.SetBytes(data)
		}))
	mosaic.Infof("Initialized groupcache %q with %d MB\n", name, cacheBytes>>20)
	return &GroupcacheFetcher{group: group}
}

// Fetch returns the cached tile, fetching it on a miss.
func (g *GroupcacheFetcher) Fetch(ctx context.Context, key TileKey) ([]byte, error) {
	var data []byte
	if err := g.group.Get(ctx, key.String(), groupcache.AllocatingByteSliceSink(&data)); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

// Stats returns the group's hit and load counters.
func (g *GroupcacheFetcher) Stats() groupcache.Stats {
	return g.group.Stats
}
