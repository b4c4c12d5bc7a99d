// Package imageio turns uploaded pictures of a drawing into raw 784-value
// samples for the normalizer.
package imageio

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/Brownie44l1/letters-api/internal/preprocess"
	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultMaxSide caps either dimension of an uploaded drawing.
const DefaultMaxSide = 4096

var ErrTooLarge = errors.New("image dimensions too large")

// Decode sniffs and decodes PNG, JPEG, GIF or WebP bytes. The header is read
// first so images wider or taller than maxSide are rejected before any pixel
// buffer is allocated. maxSide <= 0 means DefaultMaxSide.
func Decode(raw []byte, maxSide int) (image.Image, string, error) {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > maxSide || cfg.Height > maxSide {
		return nil, "", fmt.Errorf("%w: %dx%d, limit %d", ErrTooLarge, cfg.Width, cfg.Height, maxSide)
	}
	return image.Decode(bytes.NewReader(raw))
}

// DecodeDataURL accepts bare base64 or a "data:image/png;base64,..." URL.
func DecodeDataURL(s string) ([]byte, error) {
	if i := strings.LastIndexByte(s, ','); i >= 0 {
		s = s[i+1:]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

// Pixels converts an arbitrary image into a 784-value grayscale sample in
// [0,255], white strokes on black. invert handles dark-on-light drawings.
func Pixels(img image.Image, invert bool) []float64 {
	gray := image.NewGray(img.Bounds())
	draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)

	resized := resize.Resize(preprocess.Size, preprocess.Size, gray, resize.Lanczos3)
	bounds := resized.Bounds()

	pixels := make([]float64, 0, preprocess.Pixels)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := float64(color.GrayModel.Convert(resized.At(x, y)).(color.Gray).Y)
			if invert {
				v = 255 - v
			}
			pixels = append(pixels, v)
		}
	}
	return pixels
}
