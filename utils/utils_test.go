package utils

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHexColor(t *testing.T) {
	cases := []struct {
		in   string
		want color.NRGBA
	}{
		{"#222", color.NRGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}},
		{"#1976d2", color.NRGBA{R: 0x19, G: 0x76, B: 0xd2, A: 0xff}},
		{"ff000080", color.NRGBA{R: 0xff, G: 0, B: 0, A: 0x80}},
		{" #FFF ", color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseHexColor(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseHexColor_Invalid(t *testing.T) {
	for _, in := range []string{"", "#12", "#12345", "#zzzzzz", "red"} {
		_, err := ParseHexColor(in)
		assert.Error(t, err, in)
	}
}

func TestCardFileName(t *testing.T) {
	assert.Equal(t, "Asha_Rao_idcard.png", CardFileName("Asha Rao", "png"))
	assert.Equal(t, "O_Brien__Jr__idcard.png", CardFileName("O'Brien (Jr)", ".png"))
	assert.Equal(t, "Ren__idcard.png", CardFileName("René", "png"))
	assert.Equal(t, "_idcard.png", CardFileName("", "png"))
}

func TestContentTypeFromFileName(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentTypeFromFileName("photo.JPG"))
	assert.Equal(t, "image/png", ContentTypeFromFileName("a/b/c.png"))
	assert.Equal(t, "application/pdf", ContentTypeFromFileName("design.pdf"))
	assert.Equal(t, "application/octet-stream", ContentTypeFromFileName("notes.txt"))
}
