package utils

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeBase64Image(t *testing.T) {
	raw := encodePNG(t, 4, 4)
	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	decoded, contentType, err := DecodeBase64Image(payload)
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, raw, decoded)

	// bare base64 defaults to jpeg
	_, contentType, err = DecodeBase64Image(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", contentType)

	_, _, err = DecodeBase64Image("data:image/png;base64")
	assert.ErrorIs(t, err, ErrInvalidImagePayload)

	_, _, err = DecodeBase64Image("not base64 at all!!!")
	assert.ErrorIs(t, err, ErrInvalidImagePayload)
}

func TestNormalizeImage(t *testing.T) {
	normalized, contentType, err := NormalizeImage(encodePNG(t, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", contentType)

	img, err := imaging.Decode(bytes.NewReader(normalized))
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
}

func TestNormalizeImageCapsWidth(t *testing.T) {
	normalized, _, err := NormalizeImage(encodePNG(t, 2000, 1000))
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(normalized))
	require.NoError(t, err)
	assert.Equal(t, 1280, img.Bounds().Dx())
}

func TestNormalizeImageRejectsGarbage(t *testing.T) {
	_, _, err := NormalizeImage([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrInvalidImagePayload)
}
