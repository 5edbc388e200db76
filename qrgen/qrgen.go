// Package qrgen renders QR code bitmaps at an exact pixel size with a
// deploy-time color scheme and quiet-zone width.
package qrgen

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	qrcode "github.com/skip2/go-qrcode"
)

// MaxURLLength caps the encoded string to keep QR generation cheap.
// Anything a phone camera can realistically scan fits well under this.
const MaxURLLength = 2000

// DefaultSize is the QR side length in pixels used by the stock postcard
// layout.
const DefaultSize = 880

var (
	// ErrMissingURL is returned when the URL to encode is empty.
	ErrMissingURL = errors.New("url is required")
	// ErrURLTooLong is returned when the URL exceeds MaxURLLength.
	ErrURLTooLong = fmt.Errorf("url exceeds %d characters", MaxURLLength)
)

// Spec describes how a QR bitmap is rendered. The zero value is not
// usable; start from DefaultSpec.
type Spec struct {
	// Size is the output side length in pixels.
	Size int
	// Foreground colors the QR modules.
	Foreground color.NRGBA
	// Background colors everything else, including the quiet zone.
	Background color.NRGBA
	// Border is the quiet-zone width in modules.
	Border int
}

// DefaultSpec returns the postcard QR rendering defaults: 880px, black
// on #cefe05, one quiet-zone module.
func DefaultSpec() Spec {
	return Spec{
		Size:       DefaultSize,
		Foreground: color.NRGBA{A: 255},
		Background: color.NRGBA{R: 0xce, G: 0xfe, B: 0x05, A: 255},
		Border:     1,
	}
}

// Encode renders url as a Size×Size QR bitmap per spec.
//
// The matrix is generated at error-correction level Medium, drawn one
// pixel per module with spec.Border background modules around it, then
// scaled to the target size with nearest-neighbor resampling so module
// edges stay crisp. The result is fully opaque and deterministic for a
// given (url, spec).
func Encode(url string, spec Spec) (*image.NRGBA, error) {
	if url == "" {
		return nil, ErrMissingURL
	}
	if len(url) > MaxURLLength {
		return nil, ErrURLTooLong
	}

	code, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("generate qr matrix: %w", err)
	}
	code.DisableBorder = true

	grid := code.Bitmap()
	modules := len(grid)
	total := modules + 2*spec.Border

	native := image.NewNRGBA(image.Rect(0, 0, total, total))
	draw.Draw(native, native.Bounds(), image.NewUniform(spec.Background), image.Point{}, draw.Src)
	for y, row := range grid {
		for x, dark := range row {
			if dark {
				native.SetNRGBA(x+spec.Border, y+spec.Border, spec.Foreground)
			}
		}
	}

	return imaging.Resize(native, spec.Size, spec.Size, imaging.NearestNeighbor), nil
}

// ParseHexColor parses a "#rrggbb" or "rrggbb" hex string into an
// opaque color.
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	r, err1 := strconv.ParseUint(hex[0:2], 16, 8)
	g, err2 := strconv.ParseUint(hex[2:4], 16, 8)
	b, err3 := strconv.ParseUint(hex[4:6], 16, 8)
	if err1 != nil || err2 != nil || err3 != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	return color.NRGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}, nil
}
