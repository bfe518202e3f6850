package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/janelia-flyem/mosaic/mosaic"
	"github.com/janelia-flyem/mosaic/storage"
)

// Source is an opened tile source together with the pyramid geometry it serves.
type Source struct {
	storage.TileSource

	TileShape mosaic.Point2d
	Levels    int
	DataType  mosaic.DataType

	// Index is set for stored tiles and nil for render-tile API sources.
	Index *storage.Index

	// Monitor receives the size of every tile fetched from the source.  It only
	// tallies while its Run method is active.
	Monitor *storage.Monitor

	cache  *storage.CachedSource
	group  *storage.GroupcacheFetcher
	closer func() error
}

// CacheStats describes the use of any configured tile caches.
func (s *Source) CacheStats() string {
	var parts []string
	if s.cache != nil {
		hits, misses := s.cache.HitRate()
		parts = append(parts, fmt.Sprintf("decoded tile cache %d hits, %d misses", hits, misses))
	}
	if s.group != nil {
		st := s.group.Stats()
		parts = append(parts, fmt.Sprintf("encoded tile cache %d gets, %d hits, %d loads",
			st.Gets.Get(), st.CacheHits.Get(), st.Loads.Get()))
	}
	if len(parts) == 0 {
		return "no tile caches"
	}
	return strings.Join(parts, "; ")
}

// Close releases the source.
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// OpenSource opens the configured tile source with any configured caches.  A
// render-tile endpoint takes precedence over a stored tile ref and requires a
// non-empty token.
func (c *Config) OpenSource(ctx context.Context, token string) (*Source, error) {
	var fetcher storage.Fetcher
	var src Source

	switch {
	case c.Source.Endpoint != "":
		if token == "" {
			return nil, mosaic.NewConfigError("render-tile source %s needs an access token", c.Source.Endpoint)
		}
		dtype, err := c.DataType()
		if err != nil {
			return nil, err
		}
		hf, err := storage.NewHTTPFetcher(ctx, c.Source.Endpoint, c.Source.Image, storage.TokenSource(token))
		if err != nil {
			return nil, err
		}
		fetcher = hf
		src.TileShape = mosaic.Point2d(c.Source.TileShape)
		src.Levels = c.Source.Levels
		src.DataType = dtype

	case c.Source.Ref != "":
		tiles, err := storage.OpenTiles(ctx, c.Source.Ref)
		if err != nil {
			return nil, err
		}
		fetcher = tiles
		src.Index = tiles.Index
		src.TileShape = tiles.Index.TileShape
		src.Levels = tiles.Index.Levels
		src.DataType = tiles.Index.DataType
		src.closer = tiles.Close

	default:
		return nil, mosaic.NewConfigError("no tile source: set source.ref or source.endpoint")
	}

	src.Monitor = storage.NewMonitor()
	fetcher = storage.MonitorFetcher(fetcher, src.Monitor)
	if c.Groupcache.MB > 0 {
		src.group = storage.NewGroupcacheFetcher(fetcher, int64(c.Groupcache.MB)<<20)
		fetcher = src.group
	}
	var ts storage.TileSource = storage.NewDecoder(fetcher)
	if c.Cache.MB > 0 {
		src.cache = storage.NewCachedSource(ts, c.Cache.MB)
		ts = src.cache
	}
	src.TileSource = ts
	return &src, nil
}
