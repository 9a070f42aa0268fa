package utils

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/disintegration/imaging"
)

var ErrInvalidImagePayload = errors.New("invalid base64 image payload")

const maxImageWidth = 1280

// DecodeBase64Image accepts a data URI ("data:image/png;base64,....") or a
// bare base64 string and returns the raw bytes plus the declared content
// type. Bare strings default to image/jpeg.
func DecodeBase64Image(payload string) ([]byte, string, error) {
	contentType := "image/jpeg"
	data := payload

	if strings.HasPrefix(payload, "data:") {
		parts := strings.SplitN(payload, ",", 2)
		if len(parts) != 2 {
			return nil, "", ErrInvalidImagePayload
		}
		meta := strings.TrimPrefix(parts[0], "data:")
		contentType = strings.SplitN(meta, ";", 2)[0]
		data = parts[1]
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", ErrInvalidImagePayload
	}
	return raw, contentType, nil
}

// NormalizeImage re-encodes the upload and caps its width so the bucket is
// never asked to store arbitrarily large originals.
func NormalizeImage(data []byte) ([]byte, string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", ErrInvalidImagePayload
	}

	if img.Bounds().Dx() > maxImageWidth {
		img = imaging.Resize(img, maxImageWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "image/jpeg", nil
}
