// Package mapimage loads the background map and reports its natural size.
package mapimage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ziadkadry99/mapview/internal/viewport"
)

// Asset is a decoded-header map image held in memory.
type Asset struct {
	Name        string
	Format      string
	ContentType string
	Width       int
	Height      int
	data        []byte
}

// Load reads the image at path and decodes its header.
func Load(path string) (*Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading map image %s: %w", path, err)
	}
	a, err := Decode(filepath.Base(path), data)
	if err != nil {
		return nil, fmt.Errorf("map image %s: %w", path, err)
	}
	return a, nil
}

// Decode builds an Asset from raw bytes.
func Decode(name string, data []byte) (*Asset, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image header: %w", err)
	}
	return &Asset{
		Name:        name,
		Format:      format,
		ContentType: http.DetectContentType(data),
		Width:       cfg.Width,
		Height:      cfg.Height,
		data:        data,
	}, nil
}

// NaturalSize returns the unscaled image dimensions.
func (a *Asset) NaturalSize() viewport.Vec {
	return viewport.Vec{X: float64(a.Width), Y: float64(a.Height)}
}

// ServeHTTP writes the image.
func (a *Asset) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(a.data)
}
