package precompute

import (
	"fmt"
	"path"
	"strconv"

	"github.com/janelia-flyem/mosaic/mosaic"
)

// InfoName is the name of the descriptor file in each channel directory.
const InfoName = "info"

// ChunkBounds returns the half-open voxel bounds, in (z, y, x), of the tile at grid
// position (z, y, x).  tileShape is the (height, width) of the tile itself, which
// may be smaller than the block for tiles at the right and bottom edges.
func ChunkBounds(tileShape mosaic.Point2d, grid, block mosaic.Point3d) (begin, end mosaic.Point3d) {
	begin = grid.Mult(block)
	end = begin.Add(mosaic.Point3d{1, tileShape[0], tileShape[1]})
	return
}

// PathFor returns the neuroglancer chunk path of a tile relative to its channel
// directory: "<level>/<x0>-<x1>_<y0>-<y1>_<z0>-<z1>".
func PathFor(tileShape mosaic.Point2d, grid, block mosaic.Point3d, level int) string {
	begin, end := ChunkBounds(tileShape, grid, block)
	return path.Join(strconv.Itoa(level), fmt.Sprintf("%d-%d_%d-%d_%d-%d",
		begin[2], end[2], begin[1], end[1], begin[0], end[0]))
}

// ChannelPath returns a path within the directory of a channel.
func ChannelPath(channel int, rel string) string {
	return path.Join(strconv.Itoa(channel), rel)
}
