/*
	Package precompute converts a tiled source pyramid into a neuroglancer precomputed
	volume with one directory per channel:

		<c>/info                              JSON descriptor
		<c>/<level>/<x0>-<x1>_<y0>-<y1>_<z0>-<z1>   one re-encoded chunk per tile

	The descriptor is derived from the last tile of each level and written for every
	channel before any chunk.  Chunks are then written concurrently.  A run is resumable:
	chunks that already exist are skipped unless Overwrite is set.
*/
package precompute

import (
	"context"
	"fmt"
	"sync/atomic"

	humanize "github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/janelia-flyem/mosaic/mosaic"
	"github.com/janelia-flyem/mosaic/storage"
)

// DefaultConcurrency is the number of chunks processed at once if not specified.
const DefaultConcurrency = 16

// Options control a precompute run.
type Options struct {
	Encoding    string // "auto", "jpeg", "png" or "raw"
	JPEGQuality int
	Gzip        bool
	Overwrite   bool
	Concurrency int
	Time        int        // time point of the source to convert
	Resolution  [3]float64 // (x, y, z) voxel size at level 0
}

// Summary counts the outcome of every chunk in a run.
type Summary struct {
	Written uint64
	Skipped uint64
	Absent  uint64
	Failed  uint64
	Bytes   uint64
}

func (s *Summary) String() string {
	return fmt.Sprintf("%d chunks written (%s), %d skipped, %d absent, %d failed",
		s.Written, humanize.Bytes(s.Bytes), s.Skipped, s.Absent, s.Failed)
}

// Pipeline converts one source pyramid.
type Pipeline struct {
	src       storage.TileSource
	shape     VolumeShape
	tileShape mosaic.Point2d
	w         Writer
	opts      Options
}

// NewPipeline returns a pipeline reading tiles of the given shape from src and
// writing through w.
func NewPipeline(src storage.TileSource, shape VolumeShape, tileShape mosaic.Point2d, w Writer, opts Options) *Pipeline {
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Pipeline{src: src, shape: shape, tileShape: tileShape, w: w, opts: opts}
}

// Descriptor loads the representative tiles and builds the volume descriptor.
func (p *Pipeline) Descriptor(ctx context.Context) (*Descriptor, error) {
	if err := p.shape.Validate(); err != nil {
		return nil, err
	}
	if p.opts.Time < 0 || p.opts.Time >= p.shape.Times {
		return nil, mosaic.NewConfigError("time %d outside source with %d times", p.opts.Time, p.shape.Times)
	}
	lastTiles, err := LoadLastTiles(ctx, p.src, p.shape, p.opts.Time)
	if err != nil {
		return nil, err
	}
	d, err := BuildDescriptor(p.shape, p.tileShape, lastTiles)
	if err != nil {
		return nil, err
	}
	if d.Encoding, err = ResolveEncoding(p.opts.Encoding, d.DataType); err != nil {
		return nil, err
	}
	d.Resolution = p.opts.Resolution
	return d, nil
}

// Run writes the descriptor of every channel and then every chunk.  Configuration
// errors and descriptor write failures abort the run; failures of single chunks
// are logged and counted in the summary.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	timedLog := mosaic.NewTimeLog()
	d, err := p.Descriptor(ctx)
	if err != nil {
		return nil, err
	}
	mosaic.Infof("Precomputing %d channels of %s\n", p.shape.Channels, d)

	info, err := d.MarshalInfo()
	if err != nil {
		return nil, err
	}
	for c := 0; c < p.shape.Channels; c++ {
		if err := p.w.Write(ctx, ChannelPath(c, InfoName), info, false); err != nil {
			return nil, err
		}
	}

	enc := Encoder{Encoding: d.Encoding, JPEGQuality: p.opts.JPEGQuality, Gzip: p.opts.Gzip}
	var summary Summary
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)

schedule:
	for c := 0; c < p.shape.Channels; c++ {
		for level := 0; level < p.shape.Levels; level++ {
			grid := p.shape.LevelGrid(level)
			for z := int32(0); z < grid[0]; z++ {
				for y := int32(0); y < grid[1]; y++ {
					for x := int32(0); x < grid[2]; x++ {
						if gctx.Err() != nil {
							break schedule
						}
						key := storage.TileKey{
							Channel: c,
							Time:    p.opts.Time,
							Z:       int(z),
							Level:   level,
							Row:     y,
							Col:     x,
						}
						g.Go(func() error {
							p.processChunk(gctx, key, d.Block, enc, &summary)
							return nil
						})
					}
				}
			}
		}
	}
	if err := g.Wait(); err != nil {
		return &summary, err
	}
	if err := ctx.Err(); err != nil {
		return &summary, err
	}
	timedLog.Infof("Precomputed %s", &summary)
	return &summary, nil
}

// processChunk loads, encodes and writes one tile.  A tile's path depends on its
// own shape, so existence can only be checked for full tiles before loading.
func (p *Pipeline) processChunk(ctx context.Context, key storage.TileKey, block mosaic.Point3d, enc Encoder, s *Summary) {
	grid := mosaic.Point3d{int32(key.Z), key.Row, key.Col}
	if !p.opts.Overwrite && p.interior(key) {
		path := ChannelPath(key.Channel, PathFor(p.tileShape, grid, block, key.Level))
		if exists, err := p.w.Exists(ctx, path); err == nil && exists {
			atomic.AddUint64(&s.Skipped, 1)
			return
		}
	}

	res, err := p.src.Load(ctx, key)
	if err != nil {
		mosaic.Warningf("Skipping tile %s: %v\n", key, err)
		atomic.AddUint64(&s.Failed, 1)
		return
	}
	if !res.Found() {
		atomic.AddUint64(&s.Absent, 1)
		return
	}
	buf := res.Pixels()
	path := ChannelPath(key.Channel, PathFor(buf.Shape, grid, block, key.Level))
	if !p.opts.Overwrite && !p.interior(key) {
		if exists, err := p.w.Exists(ctx, path); err == nil && exists {
			atomic.AddUint64(&s.Skipped, 1)
			return
		}
	}

	data, err := enc.Encode(buf)
	if err != nil {
		mosaic.Errorf("Unable to encode tile %s as %s: %v\n", key, enc.Encoding, err)
		atomic.AddUint64(&s.Failed, 1)
		return
	}
	if err := p.w.Write(ctx, path, data, enc.Gzipped()); err != nil {
		mosaic.Errorf("%v\n", err)
		atomic.AddUint64(&s.Failed, 1)
		return
	}
	atomic.AddUint64(&s.Written, 1)
	atomic.AddUint64(&s.Bytes, uint64(len(data)))
	mosaic.Debugf("Wrote %s (%s)\n", path, humanize.Bytes(uint64(len(data))))
}

// interior returns true if the tile is not in the last row or column of its level
// and so has the full tile shape.
func (p *Pipeline) interior(key storage.TileKey) bool {
	grid := p.shape.LevelGrid(key.Level)
	return key.Row < grid[1]-1 && key.Col < grid[2]-1
}
