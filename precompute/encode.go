package precompute

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/klauspost/compress/gzip"

	"github.com/janelia-flyem/mosaic/mosaic"
	"github.com/janelia-flyem/mosaic/storage"
)

// Chunk encodings understood by neuroglancer.
const (
	EncodingAuto = "auto"
	EncodingJPEG = "jpeg"
	EncodingPNG  = "png"
	EncodingRaw  = "raw"
)

// DefaultJPEGQuality is used when no quality is configured.
const DefaultJPEGQuality = 95

// ResolveEncoding picks the chunk encoding for a sample type.  "auto" gives jpeg for
// 8-bit samples and raw for 16-bit samples, which jpeg cannot hold.
func ResolveEncoding(encoding string, dtype mosaic.DataType) (string, error) {
	switch encoding {
	case EncodingAuto, "":
		if dtype == mosaic.Uint8 {
			return EncodingJPEG, nil
		}
		return EncodingRaw, nil
	case EncodingJPEG:
		if dtype != mosaic.Uint8 {
			return "", mosaic.NewConfigError("jpeg encoding needs uint8 samples, volume is %s", dtype)
		}
		return encoding, nil
	case EncodingPNG, EncodingRaw:
		return encoding, nil
	default:
		return "", mosaic.NewConfigError("unknown chunk encoding %q", encoding)
	}
}

// Encoder re-encodes tiles for a precomputed volume.
type Encoder struct {
	Encoding    string
	JPEGQuality int
	Gzip        bool // only applies to raw chunks
}

// Gzipped returns true if encoded chunks are gzip compressed.
func (e Encoder) Gzipped() bool {
	return e.Gzip && e.Encoding == EncodingRaw
}

// Encode returns the chunk bytes of a tile.
func (e Encoder) Encode(buf *mosaic.PixelBuffer) ([]byte, error) {
	var out bytes.Buffer
	switch e.Encoding {
	case EncodingJPEG:
		quality := e.JPEGQuality
		if quality <= 0 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		if err := imaging.Encode(&out, buf.Image(), imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, err
		}
	case EncodingPNG:
		return storage.EncodePNG(buf)
	case EncodingRaw:
		raw := buf.RawBytes()
		if !e.Gzip {
			return raw, nil
		}
		zw, err := gzip.NewWriterLevel(&out, gzip.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := zw.Write(raw); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown chunk encoding %q", e.Encoding)
	}
	return out.Bytes(), nil
}
