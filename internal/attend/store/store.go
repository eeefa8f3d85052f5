// Package store defines the collaborators the attendance core reads from
// and writes to. Implementations live in the memory, file, sqlite and
// xlsx subpackages.
package store

import (
	"bytes"
	"image"
	"image/jpeg"
)

// EncodeJPEG is shared by snapshot and reference-face implementations.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
