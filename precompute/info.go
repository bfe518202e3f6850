package precompute

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/janelia-flyem/mosaic/mosaic"
)

// Scale is one level of detail in a neuroglancer precomputed info file.  Sizes
// and resolutions are in (x, y, z) order.
type Scale struct {
	ChunkSizes  [][3]int32 `json:"chunk_sizes"`
	Encoding    string     `json:"encoding"`
	Key         string     `json:"key"`
	Resolution  [3]float64 `json:"resolution"`
	Size        [3]int32   `json:"size"`
	VoxelOffset [3]int32   `json:"voxel_offset"`
}

// Volume is the neuroglancer precomputed info file of one channel.
type Volume struct {
	StoreType   string  `json:"@type"`     // always "neuroglancer_multiscale_volume"
	VolumeType  string  `json:"type"`      // always "image"
	DataType    string  `json:"data_type"` // "uint8" or "uint16"
	NumChannels int     `json:"num_channels"`
	Scales      []Scale `json:"scales"`
}

// Descriptor is the per-volume metadata shared by every channel: the sample type,
// the voxel extent of each level of detail with index 0 the finest, and the block
// shape shared by all levels.
type Descriptor struct {
	DataType    mosaic.DataType
	VoxelShapes []mosaic.Point3d // (z, y, x) per level
	Block       mosaic.Point3d   // (z, y, x)

	// Encoding is the neuroglancer chunk encoding: "jpeg", "png" or "raw".
	Encoding string

	// Resolution is the (x, y, z) voxel size at level 0.  Levels double x and y.
	Resolution [3]float64
}

func (d *Descriptor) String() string {
	return fmt.Sprintf("%s volume with %d levels, block %s, finest %s", d.DataType, len(d.VoxelShapes), d.Block, d.VoxelShapes[0])
}

// Info returns the neuroglancer info document for one channel of the volume.
func (d *Descriptor) Info() Volume {
	res := d.Resolution
	if res == [3]float64{} {
		res = [3]float64{1, 1, 1}
	}
	vol := Volume{
		StoreType:   "neuroglancer_multiscale_volume",
		VolumeType:  "image",
		DataType:    d.DataType.String(),
		NumChannels: 1,
		Scales:      make([]Scale, len(d.VoxelShapes)),
	}
	for level, shape := range d.VoxelShapes {
		factor := float64(int(1) << uint(level))
		vol.Scales[level] = Scale{
			ChunkSizes: [][3]int32{d.Block.XYZ()},
			Encoding:   d.Encoding,
			Key:        strconv.Itoa(level),
			Resolution: [3]float64{res[0] * factor, res[1] * factor, res[2]},
			Size:       shape.XYZ(),
		}
	}
	return vol
}

// MarshalInfo returns the JSON info document for one channel.
func (d *Descriptor) MarshalInfo() ([]byte, error) {
	return json.Marshal(d.Info())
}
