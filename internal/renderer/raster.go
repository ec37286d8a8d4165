package renderer

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/ivlev/formation2video/internal/formation"
)

// Diagram geometry in formation units.
const (
	ringRadius   = 0.92
	guideHalfLen = 1.1
	nodeRadius   = 0.07
	labelOffset  = 0.14
	strokeWidth  = 0.012
	circleSteps  = 64
)

// viewBox is the visible formation-space rectangle.
type viewBox struct {
	MinX, MinY, W, H float64
}

func viewBoxFor(kind formation.Kind) viewBox {
	if kind == formation.KindCircle {
		return viewBox{MinX: -1.2, MinY: -1.2, W: 2.4, H: 2.4}
	}
	return viewBox{MinX: -1.4, MinY: -1.1, W: 2.8, H: 2.2}
}

// Palette holds the diagram colors.
type Palette struct {
	Background color.RGBA
	Guide      color.RGBA
	Node       color.RGBA
	Label      color.RGBA
	Caption    color.RGBA
}

// DefaultPalette is a light diagram on a near-white background.
var DefaultPalette = Palette{
	Background: color.RGBA{R: 250, G: 248, B: 244, A: 255},
	Guide:      color.RGBA{R: 150, G: 150, B: 160, A: 255},
	Node:       color.RGBA{R: 40, G: 90, B: 170, A: 255},
	Label:      color.RGBA{R: 30, G: 30, B: 30, A: 255},
	Caption:    color.RGBA{R: 90, G: 90, B: 90, A: 255},
}

// Rasterizer draws frames into RGBA images. Formation y grows downwards on
// screen, so the first dancer of a circle (angle -pi/2) sits at the top.
// A Rasterizer is not safe for concurrent use; give each worker its own.
type Rasterizer struct {
	Width, Height int
	Palette       Palette
	Labels        bool
	Title         string
	// Badge is drawn in the bottom-right corner when set.
	Badge image.Image

	z *vector.Rasterizer
}

func NewRasterizer(width, height int) *Rasterizer {
	return &Rasterizer{
		Width:   width,
		Height:  height,
		Palette: DefaultPalette,
		Labels:  true,
		z:       vector.NewRasterizer(width, height),
	}
}

// Render allocates a new image and draws f into it.
func (r *Rasterizer) Render(f Frame) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	r.Draw(dst, f)
	return dst
}

// Draw paints f over the whole of dst.
func (r *Rasterizer) Draw(dst *image.RGBA, f Frame) {
	b := dst.Bounds()
	draw.Draw(dst, b, image.NewUniform(r.Palette.Background), image.Point{}, draw.Src)

	tr := newTransform(viewBoxFor(f.FormationKind), b.Dx(), b.Dy())

	switch f.FormationKind {
	case formation.KindCircle:
		r.ring(dst, tr, 0, 0, ringRadius)
	case formation.KindLine:
		r.segment(dst, tr, -guideHalfLen, 0, guideHalfLen, 0)
	case formation.KindTwoLinesFacing:
		r.segment(dst, tr, -guideHalfLen, f.Separation, guideHalfLen, f.Separation)
		r.segment(dst, tr, -guideHalfLen, -f.Separation, guideHalfLen, -f.Separation)
		if r.Labels {
			r.text(dst, r.Palette.Caption, tr.x(0), tr.y(0.03), "facing", true)
		}
	}

	for _, id := range f.IDs {
		p, ok := f.Positions[id]
		if !ok {
			continue
		}
		r.disc(dst, tr, p.X, p.Y, nodeRadius)
		if r.Labels {
			r.text(dst, r.Palette.Label, tr.x(p.X), tr.y(p.Y+labelOffset), id, true)
		}
	}

	caption := "t = " + formatCount(f.T) + " counts"
	if r.Title != "" {
		caption = r.Title + "   " + caption
	}
	r.text(dst, r.Palette.Caption, 12, 20, caption, false)

	if r.Badge != nil {
		bb := r.Badge.Bounds()
		at := image.Pt(b.Max.X-bb.Dx()-8, b.Max.Y-bb.Dy()-8)
		draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(bb.Size())}, r.Badge, bb.Min, draw.Over)
	}
}

// transform maps formation units to pixels, centered and aspect preserving.
type transform struct {
	vb            viewBox
	scale, ox, oy float64
}

func newTransform(vb viewBox, w, h int) transform {
	scale := math.Min(float64(w)/vb.W, float64(h)/vb.H)
	return transform{
		vb:    vb,
		scale: scale,
		ox:    (float64(w) - vb.W*scale) / 2,
		oy:    (float64(h) - vb.H*scale) / 2,
	}
}

func (t transform) x(v float64) float64    { return t.ox + (v-t.vb.MinX)*t.scale }
func (t transform) y(v float64) float64    { return t.oy + (v-t.vb.MinY)*t.scale }
func (t transform) size(v float64) float64 { return v * t.scale }

func (r *Rasterizer) fill(dst *image.RGBA, c color.RGBA) {
	r.z.DrawOp = draw.Over
	r.z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}

func (r *Rasterizer) reset(dst *image.RGBA) {
	b := dst.Bounds()
	if r.z == nil {
		r.z = vector.NewRasterizer(b.Dx(), b.Dy())
		return
	}
	r.z.Reset(b.Dx(), b.Dy())
}

// polygon adds a closed circle approximation; reverse flips the winding.
func (r *Rasterizer) polygon(cx, cy, rad float64, reverse bool) {
	for i := 0; i <= circleSteps; i++ {
		k := i
		if reverse {
			k = circleSteps - i
		}
		a := 2 * math.Pi * float64(k) / circleSteps
		x := float32(cx + rad*math.Cos(a))
		y := float32(cy + rad*math.Sin(a))
		if i == 0 {
			r.z.MoveTo(x, y)
		} else {
			r.z.LineTo(x, y)
		}
	}
	r.z.ClosePath()
}

func (r *Rasterizer) disc(dst *image.RGBA, t transform, x, y, rad float64) {
	r.reset(dst)
	r.polygon(t.x(x), t.y(y), t.size(rad), false)
	r.fill(dst, r.Palette.Node)
}

// ring strokes a circle outline as an annulus; the opposite windings cancel.
func (r *Rasterizer) ring(dst *image.RGBA, t transform, x, y, rad float64) {
	half := t.size(strokeWidth) / 2
	r.reset(dst)
	r.polygon(t.x(x), t.y(y), t.size(rad)+half, false)
	r.polygon(t.x(x), t.y(y), t.size(rad)-half, true)
	r.fill(dst, r.Palette.Guide)
}

func (r *Rasterizer) segment(dst *image.RGBA, t transform, x1, y1, x2, y2 float64) {
	ax, ay, bx, by := t.x(x1), t.y(y1), t.x(x2), t.y(y2)
	dx, dy := bx-ax, by-ay
	l := math.Hypot(dx, dy)
	if l == 0 {
		return
	}
	half := t.size(strokeWidth) / 2
	nx, ny := -dy/l*half, dx/l*half

	r.reset(dst)
	r.z.MoveTo(float32(ax+nx), float32(ay+ny))
	r.z.LineTo(float32(bx+nx), float32(by+ny))
	r.z.LineTo(float32(bx-nx), float32(by-ny))
	r.z.LineTo(float32(ax-nx), float32(ay-ny))
	r.z.ClosePath()
	r.fill(dst, r.Palette.Guide)
}

// text draws s with its baseline at (x, y), optionally centered on x.
func (r *Rasterizer) text(dst *image.RGBA, c color.RGBA, x, y float64, s string, centered bool) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)},
	}
	if centered {
		d.Dot.X -= d.MeasureString(s) / 2
	}
	d.DrawString(s)
}

// formatCount prints a count with two decimals, dropping a trailing ".00".
func formatCount(t float64) string {
	s := strconv.FormatFloat(t, 'f', 2, 64)
	return strings.TrimSuffix(s, ".00")
}
