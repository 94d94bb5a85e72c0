package upload

import (
	"bytes"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// sniffImage fully decodes data and reports the detected format name.
// A full decode walks the entire pixel data, so truncated or malformed
// bodies hiding behind a valid header are caught; image.DecodeConfig
// alone would not be enough. The size guard runs before this stage, so
// decode work on hostile input is already bounded.
func sniffImage(data []byte) (string, error) {
	_, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	return format, nil
}
