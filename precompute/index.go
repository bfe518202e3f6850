package precompute

import (
	"context"
	"fmt"

	"github.com/janelia-flyem/mosaic/mosaic"
	"github.com/janelia-flyem/mosaic/pyramid"
	"github.com/janelia-flyem/mosaic/storage"
)

// VolumeShape is the (c, t, levels, z, y, x) extent of a tiled source pyramid.  Grid
// holds the number of tiles along z, y and x at level 0.
type VolumeShape struct {
	Channels int
	Times    int
	Levels   int
	Grid     mosaic.Point3d
}

// ShapeFromIndex returns the volume shape of an indexed tile store.
func ShapeFromIndex(idx *storage.Index) VolumeShape {
	return VolumeShape{
		Channels: idx.Channels,
		Times:    idx.Times,
		Levels:   idx.Levels,
		Grid:     mosaic.Point3d{int32(idx.Depth), idx.Grid[0], idx.Grid[1]},
	}
}

// Validate returns a *mosaic.ConfigError if the shape is empty.
func (s VolumeShape) Validate() error {
	if s.Channels < 1 || s.Times < 1 || s.Levels < 1 {
		return mosaic.NewConfigError("volume shape needs at least one channel, time and level: %+v", s)
	}
	if s.Grid[0] < 1 || s.Grid[1] < 1 || s.Grid[2] < 1 {
		return mosaic.NewConfigError("volume tile grid %s must be positive", s.Grid)
	}
	return nil
}

// LevelGrid returns the number of tiles along z, y and x at a level.
func (s VolumeShape) LevelGrid(level int) mosaic.Point3d {
	return pyramid.LODGridIndex(s.Grid, level).Add(mosaic.Point3d{1, 1, 1})
}

// LastTileKey returns the key of the last tile of channel 0 at a level, which is the
// tile that determines the level's extent.
func (s VolumeShape) LastTileKey(level, t int) storage.TileKey {
	last := pyramid.LODGridIndex(s.Grid, level)
	return storage.TileKey{
		Channel: 0,
		Time:    t,
		Z:       int(last[0]),
		Level:   level,
		Row:     last[1],
		Col:     last[2],
	}
}

// LoadLastTiles loads the representative last tile of every level.  A missing tile
// is an error wrapping mosaic.ErrTileUnavailable.
func LoadLastTiles(ctx context.Context, src storage.TileSource, shape VolumeShape, t int) ([]*mosaic.PixelBuffer, error) {
	tiles := make([]*mosaic.PixelBuffer, shape.Levels)
	for level := range tiles {
		key := shape.LastTileKey(level, t)
		res, err := src.Load(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("unable to load last tile %s of level %d: %w", key, level, err)
		}
		if !res.Found() {
			return nil, fmt.Errorf("last tile %s of level %d: %w", key, level, mosaic.ErrTileUnavailable)
		}
		tiles[level] = res.Pixels()
	}
	return tiles, nil
}

// BuildDescriptor computes the voxel extent of every level from the last tile of
// each level.  The sample type is read from the last processed, coarsest, tile.
func BuildDescriptor(shape VolumeShape, tileShape mosaic.Point2d, lastTiles []*mosaic.PixelBuffer) (*Descriptor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if tileShape[0] <= 0 || tileShape[1] <= 0 {
		return nil, mosaic.NewConfigError("tile shape %s must be positive", tileShape)
	}
	if len(lastTiles) != shape.Levels {
		return nil, fmt.Errorf("need %d representative tiles, got %d: %w", shape.Levels, len(lastTiles), mosaic.ErrTileUnavailable)
	}
	block := mosaic.Point3d{1, tileShape[0], tileShape[1]}
	d := &Descriptor{
		Block:       block,
		VoxelShapes: make([]mosaic.Point3d, shape.Levels),
	}
	for level, tile := range lastTiles {
		if tile == nil {
			return nil, fmt.Errorf("level %d has no representative tile: %w", level, mosaic.ErrTileUnavailable)
		}
		lastIndex := pyramid.LODGridIndex(shape.Grid, level)
		lastTile := mosaic.Point3d{0, tile.Shape[0], tile.Shape[1]}
		d.VoxelShapes[level] = pyramid.LODVoxelShape(lastTile, block, lastIndex)
		d.DataType = tile.DataType
	}
	return d, nil
}
