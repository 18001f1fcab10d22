package helpers

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func TestReadImage(t *testing.T) {
	data, mime, err := ReadImage(bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
	assert.Equal(t, "image/png", mime.String())
	assert.Equal(t, ".png", mime.Extension())

	_, _, err = ReadImage(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, _, err = ReadImage(strings.NewReader("%PDF-1.7 not a picture"))
	assert.ErrorIs(t, err, ErrNotAnImage)

	big := append(append([]byte(nil), pngHeader...), make([]byte, MaxImageSize)...)
	_, _, err = ReadImage(bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestPublicIDFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://res.cloudinary.com/demo/image/upload/v1712/events/abc.jpg", "events/abc"},
		{"https://res.cloudinary.com/demo/image/upload/events/abc-def.png", "events/abc-def"},
		{"https://res.cloudinary.com/demo/image/upload/v9/events/nested/id", "events/nested/id"},
	}
	for _, tt := range tests {
		got, err := publicIDFromURL(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.want, got)
	}

	_, err := publicIDFromURL("https://example.com/poster.png")
	assert.Error(t, err)
}

func TestSupabaseImagesRejectsForeignURL(t *testing.T) {
	si := NewSupabaseImages(nil, "")
	err := si.Delete(context.Background(), "https://res.cloudinary.com/demo/image/upload/events/abc.jpg")
	assert.ErrorContains(t, err, EventImagesBucket)
}
