package render

import (
	"image"

	"github.com/bryanchriswhite/PTZView/internal/frame"
	xdraw "golang.org/x/image/draw"
)

// Compositor owns the window-sized canvas that is presented every frame
type Compositor struct {
	canvas   *image.RGBA
	animator *Animator
	scaler   xdraw.Scaler
}

// NewCompositor creates a compositor drawing the placeholder with animator
func NewCompositor(animator *Animator) *Compositor {
	return &Compositor{
		animator: animator,
		scaler:   xdraw.ApproxBiLinear,
	}
}

// Canvas returns the canvas sized w x h, reallocating only when the size changed
func (c *Compositor) Canvas(w, h int) *image.RGBA {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if c.canvas == nil || c.canvas.Rect.Dx() != w || c.canvas.Rect.Dy() != h {
		c.canvas = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	return c.canvas
}

// DrawLive letterboxes the surface into a w x h canvas. The fit rectangle is
// recomputed on every call since the window may have been resized.
func (c *Compositor) DrawLive(s *frame.Surface, w, h int) (*image.RGBA, image.Rectangle) {
	canvas := c.Canvas(w, h)
	xdraw.Draw(canvas, canvas.Bounds(), image.Black, image.Point{}, xdraw.Src)

	src := s.YCbCr()
	if src == nil {
		return canvas, image.Rectangle{}
	}

	dst := Fit(s.Width, s.Height, canvas.Rect.Dx(), canvas.Rect.Dy())
	c.scaler.Scale(canvas, dst, src, src.Bounds(), xdraw.Src, nil)
	return canvas, dst
}

// DrawPlaceholder renders one frame of the placeholder animation
func (c *Compositor) DrawPlaceholder(w, h int) *image.RGBA {
	canvas := c.Canvas(w, h)
	c.animator.Render(canvas)
	return canvas
}

// Release drops the canvas
func (c *Compositor) Release() {
	c.canvas = nil
}
