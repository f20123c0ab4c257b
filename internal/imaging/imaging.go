// Package imaging turns uploaded item photos into compact embedded images.
//
// Photos are sniffed, downscaled and re-encoded as JPEG, then stored on the
// item as a data URI so the inventory snapshot stays self-contained.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"

	"golang.org/x/image/draw"

	"github.com/JonMunkholm/wardrobe/internal/core"
)

// Defaults used when a Processor field is zero.
const (
	DefaultMaxDimension = 800
	DefaultJPEGQuality  = 80
	DefaultMaxPixels    = 40_000_000
)

// allowedMIME lists the accepted input types, sniffed from the bytes.
var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// Result is a processed image.
type Result struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// DataURI encodes the result as a base64 data URI.
func (r *Result) DataURI() string {
	return "data:" + r.MIME + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// Processor downscales and re-encodes images.
type Processor struct {
	MaxDimension int
	Quality      int

	// MaxPixels rejects images whose declared width*height is larger,
	// before any pixel data is decoded.
	MaxPixels int
}

// Process validates the format by sniffing bytes, checks the declared size
// against MaxPixels, downscales if either edge exceeds MaxDimension, and
// re-encodes as JPEG.
func (p Processor) Process(r io.Reader) (*Result, error) {
	maxDim := p.MaxDimension
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	quality := p.Quality
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}

	detected := http.DetectContentType(data)
	if !allowedMIME[detected] {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedImage, detected)
	}

	maxPixels := p.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", core.ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", core.ErrUnsupportedImage, cfg.Width, cfg.Height, maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding: %v", core.ErrUnsupportedImage, err)
	}

	img = flatten(downscale(img, maxDim))

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	b := img.Bounds()
	return &Result{
		Data:   buf.Bytes(),
		MIME:   "image/jpeg",
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// downscale resizes the image so neither dimension exceeds maxDim,
// preserving aspect ratio. Smaller images are returned unchanged.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}
	newW = max(newW, 1)
	newH = max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// flatten composites the image onto white. JPEG has no alpha channel, and
// transparent PNG pixels would otherwise turn black.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// IsImageRef reports whether s looks like something an <img> can show:
// an http(s) URL or an image data URI.
func IsImageRef(s string) bool {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "data:image/") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "http://")
}
