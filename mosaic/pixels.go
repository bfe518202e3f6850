package mosaic

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
)

// DataType is the sample type of a pixel buffer.
type DataType uint8

const (
	Uint8 DataType = iota + 1
	Uint16
)

func (t DataType) String() string {
	switch t {
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	default:
		return fmt.Sprintf("unknown data type %d", uint8(t))
	}
}

// Limit returns the maximum representable sample value.
func (t DataType) Limit() uint32 {
	switch t {
	case Uint8:
		return 0xFF
	case Uint16:
		return 0xFFFF
	default:
		return 0
	}
}

// BytesPerSample returns the number of bytes used to store one sample.
func (t DataType) BytesPerSample() int {
	if t == Uint16 {
		return 2
	}
	return 1
}

// PixelBuffer is one tile's worth of non-negative integer samples in row-major order.
type PixelBuffer struct {
	Shape    Point2d // (height, width)
	DataType DataType
	Pix      []uint16
}

// NewPixelBuffer allocates a zeroed buffer of the given shape and type.
func NewPixelBuffer(shape Point2d, dtype DataType) *PixelBuffer {
	return &PixelBuffer{
		Shape:    shape,
		DataType: dtype,
		Pix:      make([]uint16, shape.Prod()),
	}
}

// PixelBufferFromImage converts a decoded tile into a pixel buffer.  16-bit grayscale
// images and 16-bit color images keep 16 bits of luminance; every other color model
// is reduced to 8-bit luminance.
func PixelBufferFromImage(img image.Image) (*PixelBuffer, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	r := img.Bounds()
	shape := Point2d{int32(r.Dy()), int32(r.Dx())}
	switch src := img.(type) {
	case *image.Gray:
		buf := NewPixelBuffer(shape, Uint8)
		for y := 0; y < r.Dy(); y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+r.Dx()]
			for x, v := range row {
				buf.Pix[y*r.Dx()+x] = uint16(v)
			}
		}
		return buf, nil
	case *image.Gray16:
		buf := NewPixelBuffer(shape, Uint16)
		for y := 0; y < r.Dy(); y++ {
			off := y * src.Stride
			for x := 0; x < r.Dx(); x++ {
				buf.Pix[y*r.Dx()+x] = uint16(src.Pix[off+2*x])<<8 | uint16(src.Pix[off+2*x+1])
			}
		}
		return buf, nil
	case *image.RGBA64, *image.NRGBA64:
		buf := NewPixelBuffer(shape, Uint16)
		for y := 0; y < r.Dy(); y++ {
			for x := 0; x < r.Dx(); x++ {
				g := color.Gray16Model.Convert(img.At(r.Min.X+x, r.Min.Y+y)).(color.Gray16)
				buf.Pix[y*r.Dx()+x] = g.Y
			}
		}
		return buf, nil
	default:
		buf := NewPixelBuffer(shape, Uint8)
		for y := 0; y < r.Dy(); y++ {
			for x := 0; x < r.Dx(); x++ {
				g := color.GrayModel.Convert(img.At(r.Min.X+x, r.Min.Y+y)).(color.Gray)
				buf.Pix[y*r.Dx()+x] = uint16(g.Y)
			}
		}
		return buf, nil
	}
}

// Limit returns the maximum representable sample value of the buffer.
func (b *PixelBuffer) Limit() uint32 {
	return b.DataType.Limit()
}

// At returns the sample at the given row and column.
func (b *PixelBuffer) At(row, col int) uint16 {
	return b.Pix[row*int(b.Shape[1])+col]
}

// Set stores a sample at the given row and column.
func (b *PixelBuffer) Set(row, col int, v uint16) {
	b.Pix[row*int(b.Shape[1])+col] = v
}

// Image returns the buffer as an *image.Gray or *image.Gray16.
func (b *PixelBuffer) Image() image.Image {
	h, w := int(b.Shape[0]), int(b.Shape[1])
	rect := image.Rect(0, 0, w, h)
	if b.DataType == Uint16 {
		img := image.NewGray16(rect)
		for i, v := range b.Pix {
			img.Pix[2*i] = uint8(v >> 8)
			img.Pix[2*i+1] = uint8(v)
		}
		return img
	}
	img := image.NewGray(rect)
	for i, v := range b.Pix {
		img.Pix[i] = uint8(v)
	}
	return img
}

// RawBytes returns the samples as little-endian bytes in row-major order.
func (b *PixelBuffer) RawBytes() []byte {
	if b.DataType == Uint16 {
		out := make([]byte, 2*len(b.Pix))
		for i, v := range b.Pix {
			binary.LittleEndian.PutUint16(out[2*i:], v)
		}
		return out
	}
	out := make([]byte, len(b.Pix))
	for i, v := range b.Pix {
		out[i] = uint8(v)
	}
	return out
}

const pixelHeaderSize = 9

// MarshalBinary serializes the buffer as a small header followed by its raw bytes.
func (b *PixelBuffer) MarshalBinary() ([]byte, error) {
	raw := b.RawBytes()
	out := make([]byte, pixelHeaderSize+len(raw))
	out[0] = byte(b.DataType)
	binary.LittleEndian.PutUint32(out[1:5], uint32(b.Shape[0]))
	binary.LittleEndian.PutUint32(out[5:9], uint32(b.Shape[1]))
	copy(out[pixelHeaderSize:], raw)
	return out, nil
}

// UnmarshalBinary restores a buffer serialized with MarshalBinary.
func (b *PixelBuffer) UnmarshalBinary(data []byte) error {
	if len(data) < pixelHeaderSize {
		return fmt.Errorf("pixel buffer serialization too short: %d bytes", len(data))
	}
	dtype := DataType(data[0])
	shape := Point2d{
		int32(binary.LittleEndian.Uint32(data[1:5])),
		int32(binary.LittleEndian.Uint32(data[5:9])),
	}
	n := int(shape.Prod())
	raw := data[pixelHeaderSize:]
	if len(raw) != n*dtype.BytesPerSample() {
		return fmt.Errorf("pixel buffer %s of %s expects %d bytes, got %d", shape, dtype, n*dtype.BytesPerSample(), len(raw))
	}
	pix := make([]uint16, n)
	switch dtype {
	case Uint8:
		for i := range pix {
			pix[i] = uint16(raw[i])
		}
	case Uint16:
		for i := range pix {
			pix[i] = binary.LittleEndian.Uint16(raw[2*i:])
		}
	default:
		return fmt.Errorf("bad data type %d in pixel buffer serialization", data[0])
	}
	b.Shape = shape
	b.DataType = dtype
	b.Pix = pix
	return nil
}
