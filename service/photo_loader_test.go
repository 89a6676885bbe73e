package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDrive struct {
	files map[string][]byte
}

func (d *stubDrive) DownloadImage(_ context.Context, fileID string) ([]byte, error) {
	data, ok := d.files[fileID]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func photoPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, imaging.New(w, h, color.NRGBA{G: 200, A: 255})))
	return buf.Bytes()
}

func TestPhotoLoader_DataURI(t *testing.T) {
	pl := NewPhotoLoader("", nil)
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(photoPNG(t, 12, 8))

	img, err := pl.Load(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, 12, img.Bounds().Dx())

	_, err = pl.Load(context.Background(), "data:image/png,rawbytes")
	assert.Error(t, err)
}

func TestPhotoLoader_DocumentsDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "photos"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photos", "asha.png"), photoPNG(t, 20, 30), 0644))
	pl := NewPhotoLoader(dir, nil)

	img, err := pl.Load(context.Background(), "photos/asha.png")
	require.NoError(t, err)
	assert.Equal(t, 30, img.Bounds().Dy())

	// references cannot leave the documents directory
	_, err = pl.Load(context.Background(), "../../etc/passwd")
	assert.Error(t, err)

	_, err = pl.Load(context.Background(), "photos/missing.png")
	assert.Error(t, err)
}

func TestPhotoLoader_Drive(t *testing.T) {
	ctx := context.Background()

	_, err := NewPhotoLoader("", nil).Load(ctx, "drive:abc")
	assert.ErrorIs(t, err, ErrDriveDisabled)

	pl := NewPhotoLoader("", &stubDrive{files: map[string][]byte{"abc": photoPNG(t, 5, 5)}})
	img, err := pl.Load(ctx, "drive: abc")
	require.NoError(t, err)
	assert.Equal(t, 5, img.Bounds().Dx())
}

func TestPhotoLoader_HTTP(t *testing.T) {
	data := photoPNG(t, 9, 9)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/photo.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	pl := NewPhotoLoader("", nil)
	img, err := pl.Load(context.Background(), srv.URL+"/photo.png")
	require.NoError(t, err)
	assert.Equal(t, 9, img.Bounds().Dx())

	_, err = pl.Load(context.Background(), srv.URL+"/other.png")
	assert.Error(t, err)
}

func TestPhotoLoader_EmptyAndUndecodable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644))
	pl := NewPhotoLoader(dir, nil)

	_, err := pl.Load(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNoPhoto)

	_, err = pl.Load(context.Background(), "notes.txt")
	assert.Error(t, err)
}

func TestDesignPreviewCache(t *testing.T) {
	cache := NewDesignPreviewCache(t.TempDir())
	design := photoPNG(t, 1200, 600)

	out, err := cache.Preview(design, 300)
	require.NoError(t, err)
	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 150, img.Bounds().Dy())

	path := cache.GetCachePath(design, 300)
	assert.True(t, CacheExists(path))

	again, err := cache.Preview(design, 300)
	require.NoError(t, err)
	assert.Equal(t, out, again)

	// narrower designs are not enlarged
	small, err := cache.Preview(photoPNG(t, 100, 50), 300)
	require.NoError(t, err)
	img, err = imaging.Decode(bytes.NewReader(small))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
}

func TestClampPreviewWidth(t *testing.T) {
	assert.Equal(t, maxPreviewWidth, clampPreviewWidth(0))
	assert.Equal(t, maxPreviewWidth, clampPreviewWidth(99999))
	assert.Equal(t, minPreviewWidth, clampPreviewWidth(3))
	assert.Equal(t, 640, clampPreviewWidth(640))
}
