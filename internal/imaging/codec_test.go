package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestDecodeBase64(t *testing.T) {
	c := NewCodec()

	raw := encodePNG(t, 8, 8)
	got, err := c.DecodeBase64(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestDecodeBase64_Invalid(t *testing.T) {
	c := NewCodec()

	_, err := c.DecodeBase64("%%%not-base64%%%")
	assert.ErrorIs(t, err, ErrInvalidImage)

	// Valid base64, but not an image.
	_, err = c.DecodeBase64(base64.StdEncoding.EncodeToString([]byte("hello")))
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestThumbnail(t *testing.T) {
	c := NewCodec()

	thumb, err := c.Thumbnail(bytes.NewReader(encodePNG(t, 640, 480)), 320)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy(), "aspect ratio preserved")
}

func TestThumbnail_NotAnImage(t *testing.T) {
	c := NewCodec()

	_, err := c.Thumbnail(bytes.NewReader([]byte("junk")), 320)
	assert.ErrorIs(t, err, ErrInvalidImage)
}
