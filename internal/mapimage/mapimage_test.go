package mapimage

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/ziadkadry99/mapview/internal/viewport"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLoadPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future_map.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, 200, 100), 0o644))

	a, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "png", a.Format)
	assert.Equal(t, "image/png", a.ContentType)
	assert.Equal(t, viewport.Vec{X: 200, Y: 100}, a.NaturalSize())
}

func TestDecodeBMP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, image.NewGray(image.Rect(0, 0, 32, 16))))

	a, err := Decode("map.bmp", buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, "bmp", a.Format)
	assert.Equal(t, 32, a.Width)
	assert.Equal(t, 16, a.Height)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.png"))
	assert.Error(t, err)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode("x", []byte("not an image"))
	assert.Error(t, err)
}

func TestServeHTTP(t *testing.T) {
	data := encodePNG(t, 4, 4)
	a, err := Decode("m.png", data)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/map", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, data, w.Body.Bytes())
}
