package storage

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/janelia-flyem/mosaic/mosaic"
)

// DecodeTile decodes a PNG, JPEG, TIFF or BMP tile into a pixel buffer.
func DecodeTile(data []byte) (*mosaic.PixelBuffer, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("can't decode tile image (%d bytes): %v", len(data), err)
	}
	return mosaic.PixelBufferFromImage(img)
}

// EncodePNG encodes a pixel buffer as a lossless PNG.
func EncodePNG(buf *mosaic.PixelBuffer) ([]byte, error) {
	var out bytes.Buffer
	if err := imaging.Encode(&out, buf.Image(), imaging.PNG); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
