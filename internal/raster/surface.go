// Package raster keeps the pixel content of a fixed-size drawing surface
// stable across resize and reload. Strokes are only retained as pixels,
// never as vector data, so every rescale is a lossy resample.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// ErrInvalidSnapshot is returned when a snapshot's buffer does not match
// its declared dimensions.
var ErrInvalidSnapshot = errors.New("invalid raster snapshot")

// Snapshot is an immutable RGBA pixel buffer (stride 4*Width) plus the
// pixel dimensions it was captured at.
type Snapshot struct {
	Pix    []byte
	Width  int
	Height int
}

// Equal reports whether two snapshots hold the same pixels at the same size.
func (s Snapshot) Equal(o Snapshot) bool {
	return s.Width == o.Width && s.Height == o.Height && bytes.Equal(s.Pix, o.Pix)
}

// IsZero reports whether s carries no pixels at all.
func (s Snapshot) IsZero() bool {
	return s.Width == 0 || s.Height == 0 || len(s.Pix) == 0
}

func (s Snapshot) validate() error {
	if s.Width <= 0 || s.Height <= 0 || len(s.Pix) != 4*s.Width*s.Height {
		return fmt.Errorf("%w: %dx%d with %d bytes", ErrInvalidSnapshot, s.Width, s.Height, len(s.Pix))
	}
	return nil
}

// Point is a position in logical (CSS-pixel style) coordinates.
type Point struct {
	X, Y float64
}

// Surface is a drawing surface with a logical size and a backing store
// scaled by the device pixel ratio.
type Surface struct {
	width, height int
	dpr           float64
	img           *image.RGBA
}

// NewSurface allocates a blank surface. A dpr of 0 or less means 1.
func NewSurface(width, height int, dpr float64) *Surface {
	s := &Surface{}
	s.alloc(width, height, dpr)
	return s
}

func (s *Surface) alloc(width, height int, dpr float64) {
	if dpr <= 0 {
		dpr = 1
	}
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	s.width, s.height, s.dpr = width, height, dpr
	bw, bh := backingSize(width, height, dpr)
	s.img = image.NewRGBA(image.Rect(0, 0, bw, bh))
}

func backingSize(width, height int, dpr float64) (int, int) {
	return int(math.Ceil(float64(width) * dpr)), int(math.Ceil(float64(height) * dpr))
}

// Size returns the logical size.
func (s *Surface) Size() (int, int) { return s.width, s.height }

// BackingSize returns the backing-store size in device pixels.
func (s *Surface) BackingSize() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

// Scale returns the active device pixel ratio applied to drawing calls.
func (s *Surface) Scale() float64 { return s.dpr }

// Image exposes the backing store for rendering. Callers must not retain it
// across Resize.
func (s *Surface) Image() *image.RGBA { return s.img }

// Capture copies the backing store at its current resolution.
func (s *Surface) Capture() Snapshot {
	bw, bh := s.BackingSize()
	pix := make([]byte, len(s.img.Pix))
	copy(pix, s.img.Pix)
	return Snapshot{Pix: pix, Width: bw, Height: bh}
}

// Restore draws snap into the top-left targetWidth x targetHeight device
// pixels of the backing store. When the snapshot was captured at another
// size, its pixels are first placed in an intermediate buffer at their
// original dimensions and then scaled into the target: a lossy resample.
// A zero snapshot clears the surface.
func (s *Surface) Restore(snap Snapshot, targetWidth, targetHeight int) error {
	if snap.IsZero() {
		s.Clear()
		return nil
	}
	if err := snap.validate(); err != nil {
		return err
	}

	s.Clear()
	bw, bh := s.BackingSize()
	if snap.Width == bw && snap.Height == bh && targetWidth == bw && targetHeight == bh {
		copy(s.img.Pix, snap.Pix)
		return nil
	}

	tmp := image.NewRGBA(image.Rect(0, 0, snap.Width, snap.Height))
	copy(tmp.Pix, snap.Pix)

	dst := image.Rect(0, 0, targetWidth, targetHeight).Intersect(s.img.Bounds())
	if dst.Empty() {
		return nil
	}
	if dst.Dx() == snap.Width && dst.Dy() == snap.Height {
		draw.Copy(s.img, image.Point{}, tmp, tmp.Bounds(), draw.Src, nil)
		return nil
	}
	draw.BiLinear.Scale(s.img, dst, tmp, tmp.Bounds(), draw.Src, nil)
	return nil
}

// Resize changes the logical size and device pixel ratio. The backing
// store is reallocated, the scale factor reapplied, and existing pixels are
// rescaled into the new store.
func (s *Surface) Resize(width, height int, dpr float64) error {
	prev := s.Capture()
	s.alloc(width, height, dpr)
	bw, bh := s.BackingSize()
	if bw == 0 || bh == 0 {
		return nil
	}
	return s.Restore(prev, bw, bh)
}

// Clear resets every pixel to transparent.
func (s *Surface) Clear() {
	clear(s.img.Pix)
}

// IsBlank reports whether every pixel is transparent.
func (s *Surface) IsBlank() bool {
	for _, b := range s.img.Pix {
		if b != 0 {
			return false
		}
	}
	return true
}

// Dot paints a filled disc of the given logical diameter at p.
func (s *Surface) Dot(p Point, width float64, c color.Color) {
	r := width * s.dpr / 2
	if r < 0.5 {
		r = 0.5
	}
	s.disc(p.X*s.dpr, p.Y*s.dpr, r, color.RGBAModel.Convert(c).(color.RGBA))
}

// Stroke paints a line from a to b with the given logical width. Width
// and coordinates are multiplied by the device pixel ratio so strokes look
// the same on high-density displays.
func (s *Surface) Stroke(a, b Point, width float64, c color.Color) {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	r := width * s.dpr / 2
	if r < 0.5 {
		r = 0.5
	}
	x0, y0 := a.X*s.dpr, a.Y*s.dpr
	x1, y1 := b.X*s.dpr, b.Y*s.dpr
	dist := math.Hypot(x1-x0, y1-y0)
	steps := int(math.Ceil(dist / 0.5))
	if steps == 0 {
		s.disc(x0, y0, r, rgba)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		s.disc(x0+(x1-x0)*t, y0+(y1-y0)*t, r, rgba)
	}
}

func (s *Surface) disc(cx, cy, r float64, c color.RGBA) {
	bounds := s.img.Bounds()
	minX := int(math.Floor(cx - r))
	maxX := int(math.Ceil(cx + r))
	minY := int(math.Floor(cy - r))
	maxY := int(math.Ceil(cy + r))
	r2 := r * r
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if !(image.Point{X: x, Y: y}).In(bounds) {
				continue
			}
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			if dx*dx+dy*dy <= r2 {
				s.img.SetRGBA(x, y, c)
			}
		}
	}
}
