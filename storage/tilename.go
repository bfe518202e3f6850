package storage

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"gocloud.dev/blob"

	"github.com/janelia-flyem/mosaic/mosaic"
)

// DefaultExt is the tile image extension assumed when a store has not been indexed.
const DefaultExt = "png"

var tileNameRE = regexp.MustCompile(`^C(\d+)-T(\d+)-Z(\d+)-L(\d+)-Y(\d+)-X(\d+)\.(png|jpe?g|tiff?|bmp)$`)

// TileName returns the stored name of a tile, e.g., "C0-T0-Z0-L2-Y1-X3.png".
func TileName(key TileKey, ext string) string {
	return fmt.Sprintf("C%d-T%d-Z%d-L%d-Y%d-X%d.%s", key.Channel, key.Time, key.Z, key.Level, key.Row, key.Col, ext)
}

// ParseTileName parses a stored tile name.  The boolean is false if the name does
// not follow the tile naming scheme.
func ParseTileName(name string) (key TileKey, ext string, ok bool) {
	m := tileNameRE.FindStringSubmatch(name)
	if m == nil {
		return
	}
	var vals [6]int
	for i := range vals {
		v, err := strconv.Atoi(m[i+1])
		if err != nil || v > 1<<31-1 {
			return
		}
		vals[i] = v
	}
	key = TileKey{
		Channel: vals[0],
		Time:    vals[1],
		Z:       vals[2],
		Level:   vals[3],
		Row:     int32(vals[4]),
		Col:     int32(vals[5]),
	}
	return key, m[7], true
}

// Index describes the extent of a stored tile pyramid as found by listing it.
type Index struct {
	Channels  int
	Times     int
	Levels    int
	Depth     int            // number of z planes
	Grid      mosaic.Point2d // (rows, cols) of tiles at level 0
	TileShape mosaic.Point2d // (height, width) of a full tile
	DataType  mosaic.DataType
	Ext       string
	NumTiles  int
}

func (idx Index) String() string {
	return fmt.Sprintf("%d channels, %d levels, %d z, %s tiles of %s %s covering %s (%d files)",
		idx.Channels, idx.Levels, idx.Depth, idx.Grid, idx.TileShape, idx.DataType, idx.FullShape(), idx.NumTiles)
}

// FullShape returns the (z, y, x) extent in voxels at level 0 assuming full tiles.
func (idx Index) FullShape() mosaic.Point3d {
	return mosaic.Point3d{
		int32(idx.Depth),
		idx.Grid[0] * idx.TileShape[0],
		idx.Grid[1] * idx.TileShape[1],
	}
}

// IndexBucket lists the tiles stored under prefix and returns their extent.  Each
// dimension's count is one more than the highest index found.  The first tile,
// C0-T0-Z0-L0-Y0-X0, is read to determine tile shape and pixel type.
func IndexBucket(ctx context.Context, bucket *blob.Bucket, prefix string) (*Index, error) {
	var idx Index
	iter := bucket.List(&blob.ListOptions{Prefix: prefix, Delimiter: "/"})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &mosaic.TransportError{Op: "list " + prefix, Err: err}
		}
		if obj.IsDir {
			continue
		}
		key, ext, ok := ParseTileName(strings.TrimPrefix(obj.Key, prefix))
		if !ok {
			continue
		}
		if idx.Ext == "" {
			idx.Ext = ext
		} else if idx.Ext != ext {
			return nil, mosaic.NewConfigError("tiles under %q mix extensions %q and %q", prefix, idx.Ext, ext)
		}
		idx.NumTiles++
		idx.Channels = max(idx.Channels, key.Channel+1)
		idx.Times = max(idx.Times, key.Time+1)
		idx.Depth = max(idx.Depth, key.Z+1)
		idx.Levels = max(idx.Levels, key.Level+1)
		if key.Level == 0 {
			idx.Grid[0] = max(idx.Grid[0], key.Row+1)
			idx.Grid[1] = max(idx.Grid[1], key.Col+1)
		}
	}
	if idx.NumTiles == 0 {
		return nil, mosaic.NewConfigError("no tiles found under %q", prefix)
	}

	first := prefix + TileName(TileKey{}, idx.Ext)
	data, err := bucket.ReadAll(ctx, first)
	if err != nil {
		return nil, mosaic.NewConfigError("unable to read first tile %q: %v", first, err)
	}
	buf, err := DecodeTile(data)
	if err != nil {
		return nil, fmt.Errorf("first tile %q: %v", first, err)
	}
	idx.TileShape = buf.Shape
	idx.DataType = buf.DataType
	mosaic.Debugf("Indexed %q: %s\n", prefix, idx)
	return &idx, nil
}
