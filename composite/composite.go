/*
	Package composite blends contrast-stretched, color-tinted channel tiles into a
	single RGB canvas.  Channels accumulate additively so tiles may be added in any
	order and from any number of goroutines.
*/
package composite

import (
	"image"
	"image/color"
	"sync"

	"github.com/janelia-flyem/mosaic/mosaic"
	"github.com/janelia-flyem/mosaic/pyramid"
)

// epsilon is the smallest contrast window used when normalizing samples.
const epsilon = 1e-9

// Tile is one loaded tile of a channel at the crop's pyramid level.  A nil Pixels
// buffer contributes nothing.
type Tile struct {
	Channel mosaic.Channel
	Coord   pyramid.TileCoord
	Pixels  *mosaic.PixelBuffer
}

// Canvas is an additive accumulator with red, green and blue float planes.  Values
// are not clamped until read out.
type Canvas struct {
	mu    sync.Mutex
	shape mosaic.Point2d
	pix   []float64 // row-major with 3 interleaved planes
}

// NewCanvas returns a zeroed canvas of the given (height, width).  Negative extents
// are treated as zero.
func NewCanvas(shape mosaic.Point2d) *Canvas {
	if shape[0] < 0 {
		shape[0] = 0
	}
	if shape[1] < 0 {
		shape[1] = 0
	}
	return &Canvas{
		shape: shape,
		pix:   make([]float64, 3*shape.Prod()),
	}
}

// Shape returns the (height, width) of the canvas.
func (c *Canvas) Shape() mosaic.Point2d {
	return c.shape
}

// At returns the accumulated value of a plane (0 = red, 1 = green, 2 = blue).
func (c *Canvas) At(row, col, plane int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pix[3*(row*int(c.shape[1])+col)+plane]
}

// Values returns a copy of the accumulated planes in row-major, interleaved order.
func (c *Canvas) Values() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]float64, len(c.pix))
	copy(out, c.pix)
	return out
}

// normalize contrast stretches a sample into [0,1].  An empty or inverted window
// cannot divide by zero; it saturates to 0 or 1.
func normalize(sample uint16, limit uint32, lo, hi float64) float64 {
	if limit == 0 {
		return 0
	}
	window := hi - lo
	if window < epsilon {
		window = epsilon
	}
	v := (float64(sample)/float64(limit) - lo) / window
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Accumulate adds a tile's contribution.  The tile's pixels are placed at
// coord*tileShape - cropOrigin in canvas space and clipped to the canvas.  Returns
// false if the tile was absent or did not overlap the canvas.
func (c *Canvas) Accumulate(t Tile, tileShape, cropOrigin mosaic.Point2d) bool {
	buf := t.Pixels
	if buf == nil {
		return false
	}
	offset := t.Coord.Origin(tileShape).Sub(cropOrigin)

	// intersection of the tile extent with [0, shape) in canvas space
	y0, x0 := max(offset[0], 0), max(offset[1], 0)
	y1 := min(offset[0]+buf.Shape[0], c.shape[0])
	x1 := min(offset[1]+buf.Shape[1], c.shape[1])
	if y0 >= y1 || x0 >= x1 {
		return false
	}

	limit := buf.Limit()
	ch := t.Channel
	width := int(c.shape[1])

	c.mu.Lock()
	defer c.mu.Unlock()
	for y := y0; y < y1; y++ {
		srcRow := int(y - offset[0])
		for x := x0; x < x1; x++ {
			v := normalize(buf.At(srcRow, int(x-offset[1])), limit, ch.Min, ch.Max)
			if v == 0 {
				continue
			}
			i := 3 * (int(y)*width + int(x))
			c.pix[i] += v * ch.Color[0]
			c.pix[i+1] += v * ch.Color[1]
			c.pix[i+2] += v * ch.Color[2]
		}
	}
	return true
}

// Composite blends every tile into a new canvas of cropShape.  Empty tile lists
// give an all zero canvas.
func Composite(tiles []Tile, tileShape, cropOrigin, cropShape mosaic.Point2d) *Canvas {
	canvas := NewCanvas(cropShape)
	for _, t := range tiles {
		canvas.Accumulate(t, tileShape, cropOrigin)
	}
	return canvas
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RGBA reads out the canvas, clamping each plane to [0,1] and scaling to 8 bits.
func (c *Canvas) RGBA() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, w := int(c.shape[0]), int(c.shape[1])
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := 3 * (y*w + x)
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(255 * clamp01(c.pix[i])),
				G: uint8(255 * clamp01(c.pix[i+1])),
				B: uint8(255 * clamp01(c.pix[i+2])),
				A: 255,
			})
		}
	}
	return img
}
