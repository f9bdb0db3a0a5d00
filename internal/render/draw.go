package render

import (
	"image"
	"image/color"
	imagedraw "image/draw"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// shape is an alpha mask that is opaque wherever inside reports true. Filling through
// image/draw gives correct "over" compositing on the RGBA canvas.
type shape struct {
	bounds image.Rectangle
	inside func(x, y int) bool
}

func (s shape) ColorModel() color.Model { return color.AlphaModel }
func (s shape) Bounds() image.Rectangle { return s.bounds }

func (s shape) At(x, y int) color.Color {
	if s.inside(x, y) {
		return color.Opaque
	}
	return color.Transparent
}

func fill(img *image.RGBA, s shape, clr color.Color) {
	r := s.bounds.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	imagedraw.DrawMask(img, r, image.NewUniform(clr), image.Point{}, s, r.Min, imagedraw.Over)
}

func disc(img *image.RGBA, c image.Point, radius int, clr color.Color) {
	radius = max(radius, 0)
	fill(img, shape{
		bounds: image.Rect(c.X-radius, c.Y-radius, c.X+radius+1, c.Y+radius+1),
		inside: func(x, y int) bool {
			dx, dy := x-c.X, y-c.Y
			return dx*dx+dy*dy <= radius*radius
		},
	}, clr)
}

// segment strokes a to b with the given width. Used for the palace diagonals.
func segment(img *image.RGBA, a, b image.Point, width int, clr color.Color) {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	length := math.Hypot(dx, dy)
	if length == 0 || width <= 0 {
		return
	}
	half := float64(width) / 2
	// unit normal scaled to half the width
	nx, ny := -dy/length*half, dx/length*half
	ax, ay := float64(a.X), float64(a.Y)
	pad := width/2 + 1
	fill(img, shape{
		bounds: image.Rect(min(a.X, b.X)-pad, min(a.Y, b.Y)-pad, max(a.X, b.X)+pad+1, max(a.Y, b.Y)+pad+1),
		inside: func(x, y int) bool {
			px, py := float64(x)+0.5, float64(y)+0.5
			// project onto the segment axis and its normal
			t := ((px-ax)*dx + (py-ay)*dy) / (length * length)
			n := ((px-ax)*nx + (py-ay)*ny) / (half * half)
			return t >= 0 && t <= 1 && n >= -1 && n <= 1
		},
	}, clr)
}

// panel fills rect with its corners rounded to radius.
func panel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	radius = min(max(radius, 0), rect.Dx()/2, rect.Dy()/2)
	left, right := rect.Min.X+radius, rect.Max.X-radius-1
	top, bottom := rect.Min.Y+radius, rect.Max.Y-radius-1
	fill(img, shape{
		bounds: rect,
		inside: func(x, y int) bool {
			cx, cy := x, y
			if x < left {
				cx = left
			} else if x > right {
				cx = right
			}
			if y < top {
				cy = top
			} else if y > bottom {
				cy = bottom
			}
			dx, dy := x-cx, y-cy
			return dx*dx+dy*dy <= radius*radius
		},
	}, clr)
}

// fitText shortens text with an ellipsis until it fits in maxWidth pixels.
func fitText(face font.Face, text string, maxWidth int) string {
	text = strings.TrimSpace(text)
	if text == "" || maxWidth <= 0 || face == nil {
		return text
	}
	d := font.Drawer{Face: face}
	if d.MeasureString(text).Round() <= maxWidth {
		return text
	}
	const ellipsis = "..."
	runes := []rune(text)
	for n := len(runes) - 1; n > 0; n-- {
		if s := string(runes[:n]) + ellipsis; d.MeasureString(s).Round() <= maxWidth {
			return s
		}
	}
	if d.MeasureString(ellipsis).Round() <= maxWidth {
		return ellipsis
	}
	return ""
}

// textIn centers text in rect, vertically on the face's ascent and descent.
func textIn(d *font.Drawer, rect image.Rectangle, text string, clr color.Color) {
	text = strings.TrimSpace(text)
	if d == nil || text == "" {
		return
	}
	m := d.Face.Metrics()
	x := max(rect.Min.X+(rect.Dx()-d.MeasureString(text).Round())/2, rect.Min.X)
	baseline := rect.Min.Y + (rect.Dy()+m.Ascent.Ceil()-m.Descent.Ceil())/2
	d.Src = image.NewUniform(clr)
	d.Dot = fixed.P(x, baseline)
	d.DrawString(text)
}

// textAt draws text horizontally centered on cx with the current drawer colour.
func textAt(d *font.Drawer, text string, cx, baseline int) {
	if text == "" {
		return
	}
	d.Dot = fixed.P(cx-d.MeasureString(text).Round()/2, baseline)
	d.DrawString(text)
}
