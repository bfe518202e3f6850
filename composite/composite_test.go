package composite

import (
	"math/rand"
	"sync"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/janelia-flyem/mosaic/mosaic"
	"github.com/janelia-flyem/mosaic/pyramid"
)

func filledBuffer(shape mosaic.Point2d, dtype mosaic.DataType, value uint16) *mosaic.PixelBuffer {
	buf := mosaic.NewPixelBuffer(shape, dtype)
	for i := range buf.Pix {
		buf.Pix[i] = value
	}
	return buf
}

func randomBuffer(rng *rand.Rand, shape mosaic.Point2d) *mosaic.PixelBuffer {
	buf := mosaic.NewPixelBuffer(shape, mosaic.Uint16)
	for i := range buf.Pix {
		buf.Pix[i] = uint16(rng.Intn(65536))
	}
	return buf
}

func TestCompositeSaturatedRed(t *testing.T) {
	tileShape := mosaic.Point2d{4, 4}
	tiles := []Tile{{
		Channel: mosaic.Channel{ID: 0, Color: mosaic.Red, Min: 0, Max: 1},
		Coord:   pyramid.TileCoord{Row: 0, Col: 0},
		Pixels:  filledBuffer(tileShape, mosaic.Uint8, 255),
	}}
	canvas := Composite(tiles, tileShape, mosaic.Point2d{0, 0}, mosaic.Point2d{6, 6})
	for y := 0; y < 6; y++ {
		for x := 0; x < 6; x++ {
			r, g, b := canvas.At(y, x, 0), canvas.At(y, x, 1), canvas.At(y, x, 2)
			covered := y < 4 && x < 4
			if covered && (r != 1 || g != 0 || b != 0) {
				t.Fatalf("pixel (%d,%d) expected (1,0,0), got (%g,%g,%g)", y, x, r, g, b)
			}
			if !covered && (r != 0 || g != 0 || b != 0) {
				t.Fatalf("uncovered pixel (%d,%d) expected zero, got (%g,%g,%g)", y, x, r, g, b)
			}
		}
	}
	img := canvas.RGBA()
	if c := img.RGBAAt(1, 1); c.R != 255 || c.G != 0 || c.B != 0 || c.A != 255 {
		t.Errorf("expected opaque red read-out, got %v", c)
	}
}

func TestCompositeEmpty(t *testing.T) {
	canvas := Composite(nil, mosaic.Point2d{256, 256}, mosaic.Point2d{10, 10}, mosaic.Point2d{30, 20})
	if canvas.Shape() != (mosaic.Point2d{30, 20}) {
		t.Fatalf("bad canvas shape %s", canvas.Shape())
	}
	values := canvas.Values()
	if len(values) != 30*20*3 {
		t.Fatalf("expected %d values, got %d", 30*20*3, len(values))
	}
	if floats.Max(values) != 0 || floats.Min(values) != 0 {
		t.Errorf("expected all zero canvas")
	}

	// absent buffers contribute nothing
	canvas = Composite([]Tile{{Channel: mosaic.Channel{Color: mosaic.White, Max: 1}}}, mosaic.Point2d{8, 8},
		mosaic.Point2d{0, 0}, mosaic.Point2d{8, 8})
	if floats.Max(canvas.Values()) != 0 {
		t.Errorf("expected absent tile to leave canvas zero")
	}
}

func TestCompositeCropOffset(t *testing.T) {
	// tile (1,1) of 4x4 tiles covers pixels [4,8) and the crop starts at (6,5)
	tileShape := mosaic.Point2d{4, 4}
	buf := mosaic.NewPixelBuffer(tileShape, mosaic.Uint8)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			buf.Set(y, x, uint16(10*y+x))
		}
	}
	tiles := []Tile{{
		Channel: mosaic.Channel{Color: mosaic.Green, Min: 0, Max: 1},
		Coord:   pyramid.TileCoord{Row: 1, Col: 1},
		Pixels:  buf,
	}}
	canvas := Composite(tiles, tileShape, mosaic.Point2d{6, 5}, mosaic.Point2d{3, 3})
	// canvas (0,0) is tile pixel (2,1)
	if got, want := canvas.At(0, 0, 1), 21.0/255; got != want {
		t.Errorf("expected %g at canvas origin, got %g", want, got)
	}
	if got, want := canvas.At(1, 2, 1), 33.0/255; got != want {
		t.Errorf("expected %g at (1,2), got %g", want, got)
	}
	// row 2 of the canvas is past the tile
	if got := canvas.At(2, 0, 1); got != 0 {
		t.Errorf("expected 0 outside the tile, got %g", got)
	}
}

func TestCompositeContrastStretch(t *testing.T) {
	ch := mosaic.Channel{Color: mosaic.Blue, Min: 0.25, Max: 0.75}
	for _, tc := range []struct {
		sample uint16
		want   float64
	}{
		{0, 0},
		{16384, 0}, // just above the low end of the window
		{32768, (32768.0/65535 - 0.25) / 0.5},
		{65535, 1},
	} {
		got := normalize(tc.sample, 65535, ch.Min, ch.Max)
		if !scalar.EqualWithinAbs(got, tc.want, 1e-4) {
			t.Errorf("normalize(%d) = %g, want %g", tc.sample, got, tc.want)
		}
	}
}

func TestCompositeDegenerateWindow(t *testing.T) {
	for _, ch := range []mosaic.Channel{
		{Color: mosaic.White, Min: 0.5, Max: 0.5},
		{Color: mosaic.White, Min: 0.8, Max: 0.2},
	} {
		for _, sample := range []uint16{0, 100, 127, 128, 200, 255} {
			v := normalize(sample, 255, ch.Min, ch.Max)
			if v != 0 && v != 1 {
				t.Errorf("degenerate window [%g,%g] gave %g for sample %d", ch.Min, ch.Max, v, sample)
			}
		}
	}
	if v := normalize(255, 255, 0.5, 0.5); v != 1 {
		t.Errorf("expected saturation above an empty window, got %g", v)
	}
	if v := normalize(0, 255, 0.5, 0.5); v != 0 {
		t.Errorf("expected zero below an empty window, got %g", v)
	}
}

func randomTiles(rng *rand.Rand, tileShape mosaic.Point2d) []Tile {
	channels := []mosaic.Channel{
		{ID: 0, Color: mosaic.Red, Min: 0.1, Max: 0.9},
		{ID: 1, Color: mosaic.Color{0.2, 0.7, 0.4}, Min: 0, Max: 0.5},
		{ID: 2, Color: mosaic.White, Min: 0.3, Max: 0.3},
	}
	var tiles []Tile
	for _, ch := range channels {
		for row := int32(0); row < 3; row++ {
			for col := int32(0); col < 3; col++ {
				tiles = append(tiles, Tile{
					Channel: ch,
					Coord:   pyramid.TileCoord{Row: row, Col: col},
					Pixels:  randomBuffer(rng, tileShape),
				})
			}
		}
	}
	return tiles
}

func TestCompositeOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tileShape := mosaic.Point2d{16, 16}
	origin := mosaic.Point2d{5, 7}
	shape := mosaic.Point2d{37, 30}
	tiles := randomTiles(rng, tileShape)

	want := Composite(tiles, tileShape, origin, shape).Values()
	for i := 0; i < 5; i++ {
		shuffled := make([]Tile, len(tiles))
		copy(shuffled, tiles)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := Composite(shuffled, tileShape, origin, shape).Values()
		if !floats.EqualApprox(got, want, 1e-12) {
			t.Fatalf("permutation %d produced a different canvas", i)
		}
	}
}

func TestCompositeConcurrentAccumulate(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tileShape := mosaic.Point2d{16, 16}
	origin := mosaic.Point2d{0, 0}
	shape := mosaic.Point2d{48, 48}
	tiles := randomTiles(rng, tileShape)

	want := Composite(tiles, tileShape, origin, shape).Values()

	canvas := NewCanvas(shape)
	var wg sync.WaitGroup
	for _, tile := range tiles {
		wg.Add(1)
		go func(tile Tile) {
			defer wg.Done()
			canvas.Accumulate(tile, tileShape, origin)
		}(tile)
	}
	wg.Wait()
	if !floats.EqualApprox(canvas.Values(), want, 1e-12) {
		t.Errorf("concurrent accumulation differs from serial compositing")
	}
}

func TestCanvasReadOutClamps(t *testing.T) {
	tileShape := mosaic.Point2d{2, 2}
	full := filledBuffer(tileShape, mosaic.Uint8, 255)
	tiles := []Tile{
		{Channel: mosaic.Channel{Color: mosaic.White, Max: 1}, Pixels: full},
		{Channel: mosaic.Channel{Color: mosaic.Red, Max: 1}, Pixels: full},
	}
	canvas := Composite(tiles, tileShape, mosaic.Point2d{0, 0}, tileShape)
	if canvas.At(0, 0, 0) != 2 {
		t.Fatalf("expected unclamped accumulation of 2, got %g", canvas.At(0, 0, 0))
	}
	c := canvas.RGBA().RGBAAt(0, 0)
	if c.R != 255 || c.G != 255 || c.B != 255 {
		t.Errorf("expected clamped white, got %v", c)
	}
}
