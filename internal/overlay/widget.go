package overlay

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/bryanchriswhite/PTZView/internal/event"
)

// Widget is one element of the on-screen display
type Widget interface {
	// ID returns the unique identifier for this widget instance
	ID() string

	// Update feeds the latest monitor status to the widget
	Update(st event.Status)

	// Render draws the widget onto img, positioned against img's bounds
	Render(img *image.RGBA) error

	IsEnabled() bool
	SetEnabled(enabled bool)
}

// Anchor is the window corner a widget is positioned from
type Anchor int

const (
	TopLeft Anchor = iota
	TopRight
	BottomLeft
	BottomRight
)

// BaseWidget provides common functionality for all widgets
type BaseWidget struct {
	id      string
	enabled bool
	anchor  Anchor
	margin  int
	opacity float64 // 0.0 to 1.0
}

// NewBaseWidget creates a new base widget
func NewBaseWidget(id string, anchor Anchor, margin int, opacity float64) *BaseWidget {
	w := &BaseWidget{
		id:      id,
		enabled: true,
		anchor:  anchor,
		margin:  margin,
	}
	w.SetOpacity(opacity)
	return w
}

// ID returns the widget's unique identifier
func (w *BaseWidget) ID() string {
	return w.id
}

// IsEnabled returns whether the widget should be rendered
func (w *BaseWidget) IsEnabled() bool {
	return w.enabled
}

// SetEnabled sets whether the widget should be rendered
func (w *BaseWidget) SetEnabled(enabled bool) {
	w.enabled = enabled
}

// SetOpacity sets the widget's opacity (0.0 to 1.0)
func (w *BaseWidget) SetOpacity(opacity float64) {
	if opacity < 0.0 {
		opacity = 0.0
	}
	if opacity > 1.0 {
		opacity = 1.0
	}
	w.opacity = opacity
}

// Place returns the top-left corner for a box of the given size inside bounds
func (w *BaseWidget) Place(bounds image.Rectangle, width, height int) image.Point {
	switch w.anchor {
	case TopRight:
		return image.Pt(bounds.Max.X-w.margin-width, bounds.Min.Y+w.margin)
	case BottomLeft:
		return image.Pt(bounds.Min.X+w.margin, bounds.Max.Y-w.margin-height)
	case BottomRight:
		return image.Pt(bounds.Max.X-w.margin-width, bounds.Max.Y-w.margin-height)
	default:
		return image.Pt(bounds.Min.X+w.margin, bounds.Min.Y+w.margin)
	}
}

// BlendImage blends src onto dst at (x, y) with the given opacity, clipping
// to dst
func BlendImage(dst *image.RGBA, src *image.RGBA, x, y int, opacity float64) {
	sb := src.Bounds()
	r := image.Rect(x, y, x+sb.Dx(), y+sb.Dy()).Intersect(dst.Bounds())
	if r.Empty() || opacity <= 0 {
		return
	}

	for dy := r.Min.Y; dy < r.Max.Y; dy++ {
		for dx := r.Min.X; dx < r.Max.X; dx++ {
			s := src.RGBAAt(sb.Min.X+dx-x, sb.Min.Y+dy-y)
			alpha := float64(s.A) / 255 * opacity
			if alpha <= 0 {
				continue
			}

			d := dst.RGBAAt(dx, dy)
			dst.SetRGBA(dx, dy, color.RGBA{
				R: mix(s.R, d.R, alpha),
				G: mix(s.G, d.G, alpha),
				B: mix(s.B, d.B, alpha),
				A: 0xFF,
			})
		}
	}
}

func mix(src, dst uint8, alpha float64) uint8 {
	return uint8(float64(src)*alpha + float64(dst)*(1-alpha) + 0.5)
}

// DrawRectangle blends a filled rectangle onto dst
func DrawRectangle(dst *image.RGBA, rect image.Rectangle, c color.RGBA, opacity float64) {
	tmp := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(tmp, tmp.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	BlendImage(dst, tmp, rect.Min.X, rect.Min.Y, opacity)
}
