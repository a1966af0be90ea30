package overlay

import (
	"fmt"
	"image"
	"image/color"

	"github.com/bryanchriswhite/PTZView/internal/event"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Formatter builds a widget's text from the monitor status
type Formatter func(st event.Status) string

// TextWidget displays one line of text derived from the status
type TextWidget struct {
	*BaseWidget
	format    Formatter
	text      string
	textColor color.RGBA
	bgColor   *color.RGBA // Optional background color
	padding   int
}

// NewTextWidget creates a text widget
func NewTextWidget(id string, anchor Anchor, format Formatter) *TextWidget {
	bg := color.RGBA{0, 0, 0, 0xFF}
	return &TextWidget{
		BaseWidget: NewBaseWidget(id, anchor, 12, 0.85),
		format:     format,
		textColor:  color.RGBA{255, 255, 255, 255},
		bgColor:    &bg,
		padding:    5,
	}
}

// Update recomputes the text
func (w *TextWidget) Update(st event.Status) {
	if w.format != nil {
		w.text = w.format(st)
	}
}

// Text returns the current text
func (w *TextWidget) Text() string {
	return w.text
}

// SetBackground sets the background color (nil for transparent)
func (w *TextWidget) SetBackground(c *color.RGBA) {
	w.bgColor = c
}

// Render draws the text widget
func (w *TextWidget) Render(img *image.RGBA) error {
	if !w.IsEnabled() || w.text == "" {
		return nil
	}

	face := basicfont.Face7x13
	d := &font.Drawer{Face: face}
	textW := d.MeasureString(w.text).Ceil()
	textH := face.Height

	boxW := textW + w.padding*2
	boxH := textH + w.padding*2
	at := w.Place(img.Bounds(), boxW, boxH)

	if w.bgColor != nil {
		DrawRectangle(img, image.Rect(at.X, at.Y, at.X+boxW, at.Y+boxH), *w.bgColor, w.opacity*0.6)
	}

	textImg := image.NewRGBA(image.Rect(0, 0, textW, textH))
	d.Dst = textImg
	d.Src = image.NewUniform(w.textColor)
	d.Dot = fixed.P(0, face.Ascent)
	d.DrawString(w.text)

	BlendImage(img, textImg, at.X+w.padding, at.Y+w.padding, w.opacity)
	return nil
}

// SourceLabel formats the connected source and its state
func SourceLabel(st event.Status) string {
	if st.Source == "" {
		return "No source"
	}
	if !st.Connected {
		return fmt.Sprintf("%s (waiting for video)", st.Source)
	}
	return st.Source
}

// PTZReadout formats the current camera speeds; empty when idle
func PTZReadout(st event.Status) string {
	if st.Pan == 0 && st.Tilt == 0 && st.Zoom == 0 {
		return ""
	}
	return fmt.Sprintf("PAN %+.2f  TILT %+.2f  ZOOM %+.2f", st.Pan, st.Tilt, st.Zoom)
}
