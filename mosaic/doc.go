/*
	Package mosaic provides types, constants, and functions that have no other dependencies
	and can be used by all packages within mosaic.  This includes the value types passed
	between layers (points, regions, channels, pixel buffers), the error kinds shared by
	the crop and precompute pipelines, and leveled logging.

	Coordinates follow the row-major convention of the tile sources: 2d points are
	(row, col) and 3d points are (z, row, col).  Pyramid level 0 is always the finest
	(full resolution) level and each subsequent level halves the row and column extents.
*/
package mosaic
