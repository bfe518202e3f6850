/*
	Package pyramid computes pyramid level selection, level scaling and the tile grids
	of a multi-resolution image.  Level 0 is the full resolution level and level l is
	downsampled by 2^l along rows and columns.  Everything here is pure and safe for
	concurrent use.
*/
package pyramid

import (
	"github.com/janelia-flyem/mosaic/mosaic"
)

// SelectLevel returns the finest level whose scaled extent fits within maxSize along
// both axes.  If no level below numLevels fits, the coarsest level numLevels-1 is
// returned and the output will exceed maxSize.
func SelectLevel(fullShape mosaic.Point2d, numLevels, maxSize int) int {
	if numLevels < 1 {
		return 0
	}
	longest := int64(fullShape.MaxValue())
	for level := 0; level < numLevels; level++ {
		if longest <= int64(maxSize)<<uint(level) {
			return level
		}
	}
	return numLevels - 1
}

// ScaleByLevel divides a full resolution coordinate by 2^level, rounding toward
// negative infinity.
func ScaleByLevel(v int32, level int) int32 {
	return v >> uint(level)
}

// ScalePoint applies ScaleByLevel to each component of p.
func ScalePoint(p mosaic.Point2d, level int) mosaic.Point2d {
	return mosaic.Point2d{ScaleByLevel(p[0], level), ScaleByLevel(p[1], level)}
}

// ScaleRegion scales both origin and shape of a full resolution region to a level.
func ScaleRegion(r mosaic.Region, level int) mosaic.Region {
	return mosaic.Region{
		Origin: ScalePoint(r.Origin, level),
		Shape:  ScalePoint(r.Shape, level),
	}
}

// LODGridIndex returns the (z, row, col) index of the last tile at a level of detail
// given the full resolution tile grid shape.  The depth axis is never downsampled.
func LODGridIndex(fullZYX mosaic.Point3d, level int) mosaic.Point3d {
	return mosaic.Point3d{
		fullZYX[0] - 1,
		ScaleByLevel(fullZYX[1]-1, level),
		ScaleByLevel(fullZYX[2]-1, level),
	}
}

// LODVoxelShape returns the voxel extent of a level from the shape of its last,
// possibly partial, tile plus the stride of all the full blocks preceding it.
// The z component of lastTile counts planes of the last tile beyond the first,
// so a plain 2d tile of height h and width w is passed as (0, h, w).
func LODVoxelShape(lastTile, block, lastIndex mosaic.Point3d) mosaic.Point3d {
	margin := mosaic.Point3d{1 + lastTile[0], lastTile[1], lastTile[2]}
	return margin.Add(block.Mult(lastIndex))
}
