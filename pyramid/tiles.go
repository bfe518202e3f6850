package pyramid

import (
	"fmt"
	"iter"

	"github.com/janelia-flyem/mosaic/mosaic"
)

// TileCoord is the (row, col) position of a tile in the grid of one pyramid level.
type TileCoord struct {
	Row int32
	Col int32
}

// Negative returns true if either index is negative.  Such tiles fall entirely
// outside the source image and are never loaded.
func (c TileCoord) Negative() bool {
	return c.Row < 0 || c.Col < 0
}

// Origin returns the pixel position of the tile's first pixel at its level.
func (c TileCoord) Origin(tileShape mosaic.Point2d) mosaic.Point2d {
	return mosaic.Point2d{c.Row * tileShape[0], c.Col * tileShape[1]}
}

func (c TileCoord) String() string {
	return fmt.Sprintf("tile (%d,%d)", c.Row, c.Col)
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// TileRange returns the inclusive first and last tile coordinates whose extents
// overlap [cropOrigin, cropOrigin+cropShape).  For an empty crop, last precedes first
// along at least one axis.
func TileRange(tileShape, cropOrigin, cropShape mosaic.Point2d) (first, last TileCoord) {
	end := cropOrigin.Add(cropShape)
	first = TileCoord{floorDiv(cropOrigin[0], tileShape[0]), floorDiv(cropOrigin[1], tileShape[1])}
	last = TileCoord{floorDiv(end[0]-1, tileShape[0]), floorDiv(end[1]-1, tileShape[1])}
	return
}

// CountTiles returns the number of tiles SelectTiles will yield.
func CountTiles(tileShape, cropOrigin, cropShape mosaic.Point2d) int {
	if cropShape[0] <= 0 || cropShape[1] <= 0 || tileShape[0] <= 0 || tileShape[1] <= 0 {
		return 0
	}
	first, last := TileRange(tileShape, cropOrigin, cropShape)
	return int(last.Row-first.Row+1) * int(last.Col-first.Col+1)
}

// SelectTiles returns a sequence over every tile overlapping the crop box in
// row-major order.  The sequence can be iterated any number of times.  Tiles with
// negative indices are included when cropOrigin is negative and must be skipped
// by the caller.
func SelectTiles(tileShape, cropOrigin, cropShape mosaic.Point2d) iter.Seq[TileCoord] {
	return func(yield func(TileCoord) bool) {
		if cropShape[0] <= 0 || cropShape[1] <= 0 || tileShape[0] <= 0 || tileShape[1] <= 0 {
			return
		}
		first, last := TileRange(tileShape, cropOrigin, cropShape)
		for row := first.Row; row <= last.Row; row++ {
			for col := first.Col; col <= last.Col; col++ {
				if !yield(TileCoord{row, col}) {
					return
				}
			}
		}
	}
}
