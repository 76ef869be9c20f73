// Package imaging probes photo metadata and prepares images for transport
// to the vision service.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"

	"golang.org/x/image/draw"
)

// DefaultMaxDimension bounds the longest edge of images sent to the vision
// service. Larger photos are downscaled before encoding.
const DefaultMaxDimension = 1568

// JPEGQuality is the compression quality for re-encoded output.
const JPEGQuality = 85

// AllowedMIME lists the accepted input MIME types.
var AllowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Info holds basic metadata decoded from an image file.
type Info struct {
	Width  int
	Height int
	MIME   string
}

// Probe sniffs the MIME type from the file's leading bytes (not trusting
// the filename) and decodes the pixel dimensions without loading the full
// image.
func Probe(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading image header: %w", err)
	}
	mime := http.DetectContentType(head[:n])
	if !AllowedMIME[mime] {
		return nil, fmt.Errorf("unsupported image format %s (only JPEG and PNG accepted)", mime)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding image: %w", err)
	}
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("decoding image config: %w", err)
	}

	return &Info{Width: cfg.Width, Height: cfg.Height, MIME: mime}, nil
}

// PrepareForTransport loads an image file, downscales it so neither
// dimension exceeds maxDim, and returns the encoded bytes with their MIME
// type. Images already within bounds are passed through untouched so the
// asset store and the vision service see the same bytes where possible.
func PrepareForTransport(path string, maxDim int) ([]byte, string, error) {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading image: %w", err)
	}

	detected := http.DetectContentType(data)
	if !AllowedMIME[detected] {
		return nil, "", fmt.Errorf("unsupported image format %s (only JPEG and PNG accepted)", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxDim && bounds.Dy() <= maxDim {
		return data, detected, nil
	}

	scaled := downscale(img, maxDim)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, "", fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// downscale resizes the image so neither dimension exceeds maxDim,
// preserving aspect ratio with Catmull-Rom interpolation.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	if w >= h {
		h = h * maxDim / w
		w = maxDim
	} else {
		w = w * maxDim / h
		h = maxDim
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
