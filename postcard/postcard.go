// Package postcard composites a QR code onto an uploaded postcard image
// at a fixed pixel position and encodes the result as PNG.
package postcard

import (
	"bytes"
	"errors"
	"image"

	"github.com/disintegration/imaging"

	"github.com/printkit/qr-postcard/qrgen"
)

// Upload constraints.
const (
	MinWidth       = 1000
	MinHeight      = 1000
	MaxUploadBytes = 16 << 20
)

// Stock layout geometry, calibrated against the reference postcard.
const (
	DefaultCenterX = 4695
	DefaultCenterY = 2940

	// Reference postcard dimensions the scale-to-image mode derives
	// its ratios from.
	refWidth  = 5541
	refHeight = 3741
)

// Placement is the top-left pixel coordinate where the QR bitmap lands
// on the postcard.
type Placement struct {
	X int
	Y int
}

// PlacementFromCenter derives the top-left anchor for a QR of the given
// side length centered at (cx, cy). Odd sizes round the half-size down,
// matching integer division.
func PlacementFromCenter(cx, cy, size int) Placement {
	return Placement{X: cx - size/2, Y: cy - size/2}
}

// Generator holds the immutable geometry for compositing. Construct one
// per deployment; it is safe for concurrent use since Composite keeps
// all mutable state request-local.
type Generator struct {
	// QR is the rendering spec for the pasted code.
	QR qrgen.Spec
	// Center is the desired QR center point on the postcard.
	Center image.Point
	// ScaleToImage derives size and center from each upload's
	// dimensions using the reference-postcard ratios instead of the
	// fixed geometry above.
	ScaleToImage bool
}

// NewGenerator returns a Generator with the stock postcard geometry.
func NewGenerator() Generator {
	return Generator{
		QR:     qrgen.DefaultSpec(),
		Center: image.Pt(DefaultCenterX, DefaultCenterY),
	}
}

// Placement returns the fixed-geometry top-left anchor.
func (g Generator) Placement() Placement {
	return PlacementFromCenter(g.Center.X, g.Center.Y, g.QR.Size)
}

// geometryFor resolves the QR spec and anchor for a postcard of the
// given dimensions.
func (g Generator) geometryFor(w, h int) (qrgen.Spec, Placement) {
	spec := g.QR
	center := g.Center
	if g.ScaleToImage {
		spec.Size = w * qrgen.DefaultSize / refWidth
		center = image.Pt(w*DefaultCenterX/refWidth, h*DefaultCenterY/refHeight)
	}
	return spec, PlacementFromCenter(center.X, center.Y, spec.Size)
}

// Result is the output of a successful Composite call.
type Result struct {
	// PNG holds the encoded postcard.
	PNG []byte
	// ContentType is always "image/png".
	ContentType string
	// Width and Height are the postcard dimensions, unchanged from
	// the upload.
	Width  int
	Height int
	// QRSize and Center report the geometry actually applied, which
	// differs from the configured defaults in scale-to-image mode.
	QRSize int
	Center image.Point
}

// Composite runs the full pipeline: validate the upload, render the QR
// for url, paste it, and encode the result. Any failure is terminal and
// typed as *Error; no partial output is ever returned.
func (g Generator) Composite(imageBytes []byte, url string) (*Result, error) {
	// Reject oversized payloads before touching the decoder.
	if len(imageBytes) > MaxUploadBytes {
		return nil, newError(CodePayloadTooLarge,
			"image exceeds maximum upload size of %d bytes", MaxUploadBytes)
	}
	if len(imageBytes) == 0 {
		return nil, newError(CodeInvalidImage, "empty image upload")
	}

	src, err := imaging.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, newError(CodeInvalidImage, "invalid image file: %v", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < MinWidth || h < MinHeight {
		return nil, newError(CodeImageTooSmall,
			"image too small: %dx%d, minimum %dx%d", w, h, MinWidth, MinHeight)
	}

	spec, anchor := g.geometryFor(w, h)

	qrImg, err := qrgen.Encode(url, spec)
	if err != nil {
		switch {
		case errors.Is(err, qrgen.ErrMissingURL):
			return nil, newError(CodeMissingParameter, "url cannot be empty")
		case errors.Is(err, qrgen.ErrURLTooLong):
			return nil, newError(CodeInputTooLarge, "%v", err)
		default:
			return nil, newError(CodeInternal, "qr generation failed: %v", err)
		}
	}

	// imaging.Paste silently clips, so bounds are enforced here rather
	// than discovered as a cropped QR.
	if anchor.X < 0 || anchor.Y < 0 || anchor.X+spec.Size > w || anchor.Y+spec.Size > h {
		return nil, newError(CodePlacementOutOfBounds,
			"qr placement (%d,%d)+%dpx exceeds image bounds %dx%d",
			anchor.X, anchor.Y, spec.Size, w, h)
	}

	// Clone normalizes any decoded pixel format to NRGBA; the paste
	// fully overwrites its footprint, no blending.
	base := imaging.Clone(src)
	out := imaging.Paste(base, qrImg, image.Pt(anchor.X, anchor.Y))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, newError(CodeInternal, "png encoding failed: %v", err)
	}

	return &Result{
		PNG:         buf.Bytes(),
		ContentType: "image/png",
		Width:       w,
		Height:      h,
		QRSize:      spec.Size,
		Center:      image.Pt(anchor.X+spec.Size/2, anchor.Y+spec.Size/2),
	}, nil
}
