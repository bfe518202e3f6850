/*
	Package crop renders a rectangular region of a multi-resolution, multi-channel image
	into a single RGB image.

	The region is given in full resolution pixels.  The finest pyramid level whose scaled
	region fits within the maximum output size is chosen, every tile of every channel
	that overlaps the scaled region is loaded concurrently, and the tiles are blended
	into one canvas.  Tiles that are absent, or whose load fails in transport, are
	omitted from the canvas.
*/
package crop

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/janelia-flyem/mosaic/composite"
	"github.com/janelia-flyem/mosaic/mosaic"
	"github.com/janelia-flyem/mosaic/pyramid"
	"github.com/janelia-flyem/mosaic/storage"
)

// DefaultConcurrency is the number of tiles loaded at once if not specified.
const DefaultConcurrency = 8

// Request describes a crop of a pyramid.  Origin and Shape are (row, col) and
// (height, width) in full resolution pixels.
type Request struct {
	Channels  []mosaic.Channel
	TileShape mosaic.Point2d
	Origin    mosaic.Point2d
	Shape     mosaic.Point2d
	Levels    int
	MaxSize   int

	// Time and Z select the plane of the pyramid to crop.
	Time int
	Z    int
}

// Validate returns a *mosaic.ConfigError if the request is malformed.
func (r Request) Validate() error {
	if r.TileShape[0] <= 0 || r.TileShape[1] <= 0 {
		return mosaic.NewConfigError("tile shape %s must be positive", r.TileShape)
	}
	if err := r.Region().Validate(); err != nil {
		return err
	}
	if r.Levels < 1 {
		return mosaic.NewConfigError("pyramid must have at least one level, got %d", r.Levels)
	}
	if r.MaxSize < 1 {
		return mosaic.NewConfigError("maximum output size must be positive, got %d", r.MaxSize)
	}
	if r.Time < 0 || r.Z < 0 {
		return mosaic.NewConfigError("bad plane t=%d z=%d", r.Time, r.Z)
	}
	for _, ch := range r.Channels {
		if err := ch.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Region returns the full resolution crop region.
func (r Request) Region() mosaic.Region {
	return mosaic.Region{Origin: r.Origin, Shape: r.Shape}
}

// Result is a composited crop and the counts of tiles that went into it.
type Result struct {
	Canvas *composite.Canvas
	Level  int
	Region mosaic.Region // crop region scaled to Level

	Loaded uint64 // tiles composited
	Absent uint64 // tiles with no data
	Failed uint64 // tiles whose load failed in transport
}

func (r *Result) String() string {
	return fmt.Sprintf("level %d region %s: %d tiles loaded, %d absent, %d failed",
		r.Level, r.Region, r.Loaded, r.Absent, r.Failed)
}

// Crop loads and composites every tile of the request using up to concurrency
// simultaneous loads.  The only errors returned are configuration errors, which
// occur before any tile is loaded, and context cancellation.
func Crop(ctx context.Context, src storage.TileSource, req Request, concurrency int) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	level := pyramid.SelectLevel(req.Shape, req.Levels, req.MaxSize)
	region := pyramid.ScaleRegion(req.Region(), level)
	// a thin but non-empty crop keeps at least one pixel along each axis
	for i := range region.Shape {
		if req.Shape[i] > 0 && region.Shape[i] == 0 {
			region.Shape[i] = 1
		}
	}
	res := &Result{
		Canvas: composite.NewCanvas(region.Shape),
		Level:  level,
		Region: region,
	}
	timedLog := mosaic.NewTimeLog()
	mosaic.Debugf("Cropping %s at 1/%d scale: %d tiles in each of %d channels\n", region, 1<<uint(level),
		pyramid.CountTiles(req.TileShape, region.Origin, region.Shape), len(req.Channels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
schedule:
	for _, ch := range req.Channels {
		for coord := range pyramid.SelectTiles(req.TileShape, region.Origin, region.Shape) {
			if coord.Negative() {
				continue
			}
			if gctx.Err() != nil {
				break schedule
			}
			key := storage.TileKey{
				Channel: ch.ID,
				Time:    req.Time,
				Z:       req.Z,
				Level:   level,
				Row:     coord.Row,
				Col:     coord.Col,
			}
			tile := composite.Tile{Channel: ch, Coord: coord}
			g.Go(func() error {
				loaded, err := src.Load(gctx, key)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					mosaic.Warningf("Omitting tile %s: %v\n", key, err)
					atomic.AddUint64(&res.Failed, 1)
					return nil
				}
				if !loaded.Found() {
					atomic.AddUint64(&res.Absent, 1)
					return nil
				}
				tile.Pixels = loaded.Pixels()
				res.Canvas.Accumulate(tile, req.TileShape, region.Origin)
				atomic.AddUint64(&res.Loaded, 1)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timedLog.Infof("Cropped %s", res)
	return res, nil
}

// IsCanceled returns true if the error is due to context cancellation or deadline.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
