package crop

import (
	"image"
	"io"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/janelia-flyem/mosaic/storage"
)

// OutputName is the file written into the output directory of a crop.
const OutputName = "out.png"

// OutputPath returns the path of the crop image within an output directory.
func OutputPath(dir string) string {
	return filepath.Join(dir, OutputName)
}

// WritePNG atomically writes an image as a lossless PNG.  A failure leaves any
// existing file untouched and returns a *mosaic.WriteError.
func WritePNG(path string, img image.Image) error {
	return storage.WriteFileAtomic(path, func(w io.Writer) error {
		return imaging.Encode(w, img, imaging.PNG)
	})
}
