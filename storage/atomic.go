package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/twinj/uuid"

	"github.com/janelia-flyem/mosaic/mosaic"
)

// WriteFileAtomic writes a file by streaming into a uniquely named temporary file in
// the destination directory, syncing it, and renaming it into place.  Readers never
// observe a partial file.  On failure the temporary file is removed and the error
// is a *mosaic.WriteError.
func WriteFileAtomic(path string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%x.tmp", filepath.Base(path), uuid.NewV4().Bytes()))

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return &mosaic.WriteError{Path: path, Err: err}
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	bw := bufio.NewWriter(f)
	if err = write(bw); err != nil {
		return &mosaic.WriteError{Path: path, Err: err}
	}
	if err = bw.Flush(); err != nil {
		return &mosaic.WriteError{Path: path, Err: err}
	}
	if err = f.Sync(); err != nil {
		return &mosaic.WriteError{Path: path, Err: err}
	}
	if err = f.Close(); err != nil {
		return &mosaic.WriteError{Path: path, Err: err}
	}
	if err = os.Rename(tmp, path); err != nil {
		return &mosaic.WriteError{Path: path, Err: err}
	}
	return nil
}

// WriteBytesAtomic atomically writes data to path.
func WriteBytesAtomic(path string, data []byte) error {
	return WriteFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
