/*
	Package storage supplies tiles of a multi-resolution image to the crop and precompute
	pipelines and persists their outputs.

	A TileSource returns a decoded pixel buffer for a tile key or reports the tile as
	absent.  Absence is never an error: tiles outside the image, missing objects and
	404 responses all produce an absent Result.  Errors are reserved for transport
	failures, which callers may log and then treat as absent.

	Engines fetch encoded tile bytes through the Fetcher interface:

		file or bucket tiles    BucketFetcher (gocloud blob, including local directories)
		Minerva render API      HTTPFetcher

	and are wrapped by Decoder to produce a TileSource.  GroupcacheFetcher and
	CachedSource add caching of encoded and decoded tiles respectively.
*/
package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/janelia-flyem/mosaic/mosaic"
)

// TileKey addresses one 2d tile of one channel of a pyramid.
type TileKey struct {
	Channel int
	Time    int
	Z       int
	Level   int
	Row     int32
	Col     int32
}

func (k TileKey) String() string {
	return fmt.Sprintf("%d/%d/%d/%d/%d/%d", k.Channel, k.Time, k.Z, k.Level, k.Row, k.Col)
}

// Negative returns true if any index of the key is negative.
func (k TileKey) Negative() bool {
	return k.Channel < 0 || k.Time < 0 || k.Z < 0 || k.Level < 0 || k.Row < 0 || k.Col < 0
}

// ParseTileKey parses the representation returned by TileKey.String.
func ParseTileKey(s string) (TileKey, error) {
	var k TileKey
	parts := strings.Split(s, "/")
	if len(parts) != 6 {
		return k, fmt.Errorf("bad tile key %q", s)
	}
	var vals [6]int64
	for i, part := range parts {
		v, err := strconv.ParseInt(part, 10, 32)
		if err != nil {
			return k, fmt.Errorf("bad tile key %q: %v", s, err)
		}
		vals[i] = v
	}
	k = TileKey{
		Channel: int(vals[0]),
		Time:    int(vals[1]),
		Z:       int(vals[2]),
		Level:   int(vals[3]),
		Row:     int32(vals[4]),
		Col:     int32(vals[5]),
	}
	return k, nil
}

// Result is the outcome of loading a tile: either present with pixels or absent.
type Result struct {
	pixels *mosaic.PixelBuffer
}

// Absent is the result for a tile with no data.
var Absent = Result{}

// Present wraps a loaded buffer.  A nil buffer is equivalent to Absent.
func Present(b *mosaic.PixelBuffer) Result {
	return Result{b}
}

// Found returns true if the tile has data.
func (r Result) Found() bool {
	return r.pixels != nil
}

// Pixels returns the loaded buffer or nil if absent.
func (r Result) Pixels() *mosaic.PixelBuffer {
	return r.pixels
}

// TileSource loads decoded tiles.  Implementations must be safe for concurrent use
// and must return Absent rather than an error for tiles that do not exist.
type TileSource interface {
	Load(ctx context.Context, key TileKey) (Result, error)
}

// SourceFunc adapts a function to the TileSource interface.
type SourceFunc func(ctx context.Context, key TileKey) (Result, error)

func (f SourceFunc) Load(ctx context.Context, key TileKey) (Result, error) {
	return f(ctx, key)
}

// Fetcher returns the encoded bytes of a tile, or nil with no error if the tile
// does not exist.
type Fetcher interface {
	Fetch(ctx context.Context, key TileKey) ([]byte, error)
}

// Decoder turns a Fetcher into a TileSource by decoding fetched images.
type Decoder struct {
	Fetcher
}

// NewDecoder returns a TileSource that decodes tiles from the fetcher.
func NewDecoder(f Fetcher) *Decoder {
	return &Decoder{f}
}

// Load fetches and decodes a tile.  Negative keys are absent without a fetch.
func (d *Decoder) Load(ctx context.Context, key TileKey) (Result, error) {
	if key.Negative() {
		return Absent, nil
	}
	data, err := d.Fetch(ctx, key)
	if err != nil {
		return Absent, err
	}
	if len(data) == 0 {
		return Absent, nil
	}
	buf, err := DecodeTile(data)
	if err != nil {
		return Absent, &mosaic.TransportError{Op: "decode " + key.String(), Err: err}
	}
	return Present(buf), nil
}
