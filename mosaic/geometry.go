package mosaic

import "fmt"

// Point2d is a 2d point or size in (row, col) order.
type Point2d [2]int32

// Add returns the element-wise sum of two points.
func (p Point2d) Add(x Point2d) Point2d {
	return Point2d{p[0] + x[0], p[1] + x[1]}
}

// Sub returns the element-wise difference of the passed point from the receiver.
func (p Point2d) Sub(x Point2d) Point2d {
	return Point2d{p[0] - x[0], p[1] - x[1]}
}

// Mult returns the element-wise product of two points.
func (p Point2d) Mult(x Point2d) Point2d {
	return Point2d{p[0] * x[0], p[1] * x[1]}
}

// MaxValue returns the larger of the two components.
func (p Point2d) MaxValue() int32 {
	if p[0] > p[1] {
		return p[0]
	}
	return p[1]
}

// Prod returns the product of the point elements.
func (p Point2d) Prod() int64 {
	return int64(p[0]) * int64(p[1])
}

func (p Point2d) String() string {
	return fmt.Sprintf("(%d,%d)", p[0], p[1])
}

// Point3d is a 3d point or size in (z, row, col) order.
type Point3d [3]int32

// Add returns the element-wise sum of two points.
func (p Point3d) Add(x Point3d) Point3d {
	return Point3d{p[0] + x[0], p[1] + x[1], p[2] + x[2]}
}

// Sub returns the element-wise difference of the passed point from the receiver.
func (p Point3d) Sub(x Point3d) Point3d {
	return Point3d{p[0] - x[0], p[1] - x[1], p[2] - x[2]}
}

// Mult returns the element-wise product of two points.
func (p Point3d) Mult(x Point3d) Point3d {
	return Point3d{p[0] * x[0], p[1] * x[1], p[2] * x[2]}
}

// Prod returns the product of the point elements.
func (p Point3d) Prod() int64 {
	return int64(p[0]) * int64(p[1]) * int64(p[2])
}

// XYZ returns the point reordered as (x, y, z), the order used by neuroglancer.
func (p Point3d) XYZ() [3]int32 {
	return [3]int32{p[2], p[1], p[0]}
}

func (p Point3d) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p[0], p[1], p[2])
}

// Region is a rectangular area in full-resolution pixel units.
type Region struct {
	Origin Point2d
	Shape  Point2d
}

// Validate returns a ConfigError if the region has a negative extent.
func (r Region) Validate() error {
	if r.Shape[0] < 0 || r.Shape[1] < 0 {
		return NewConfigError("region shape %s must not be negative", r.Shape)
	}
	return nil
}

// Empty returns true if the region covers no pixels.
func (r Region) Empty() bool {
	return r.Shape[0] <= 0 || r.Shape[1] <= 0
}

func (r Region) String() string {
	return fmt.Sprintf("%s+%s", r.Origin, r.Shape)
}
