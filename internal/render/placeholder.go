package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
)

// PhaseStep is how far the gradient scrolls per placeholder frame, in pixels
const PhaseStep = 2

// Gradient returns the column color function for a surface of width w at
// the given phase, and the phase for the next frame. Each column blends
// colorA and colorB with weight 0.5*(1-cos(2*pi*t)), t = frac((x+phase)/w).
func Gradient(w, phase int, colorA, colorB color.RGBA) (func(x int) color.RGBA, int) {
	if w <= 0 {
		return func(int) color.RGBA { return colorA }, 0
	}
	phase %= w
	if phase < 0 {
		phase += w
	}

	column := func(x int) color.RGBA {
		t := float64(x)/float64(w) + float64(phase)/float64(w)
		t -= math.Floor(t)
		weight := 0.5 * (1 - math.Cos(2*math.Pi*t))
		return color.RGBA{
			R: lerp(colorA.R, colorB.R, weight),
			G: lerp(colorA.G, colorB.G, weight),
			B: lerp(colorA.B, colorB.B, weight),
			A: 0xFF,
		}
	}

	return column, (phase + PhaseStep) % w
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// Animator draws the scrolling placeholder gradient and keeps its phase
// between frames.
type Animator struct {
	ColorA color.RGBA
	ColorB color.RGBA
	Image  image.Image

	phase int
}

// NewAnimator creates an animator. img is drawn centered over the gradient
// and may be nil.
func NewAnimator(colorA, colorB color.RGBA, img image.Image) *Animator {
	return &Animator{ColorA: colorA, ColorB: colorB, Image: img}
}

// Phase is the current scroll offset, always in [0, width)
func (a *Animator) Phase() int {
	return a.phase
}

// Render paints one placeholder frame over all of dst and advances the phase
func (a *Animator) Render(dst *image.RGBA) {
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return
	}

	column, next := Gradient(w, a.phase, a.ColorA, a.ColorB)
	for x := 0; x < w; x++ {
		c := column(x)
		off := dst.PixOffset(b.Min.X+x, b.Min.Y)
		for y := 0; y < h; y++ {
			p := dst.Pix[off : off+4 : off+4]
			p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
			off += dst.Stride
		}
	}
	a.phase = next

	if a.Image != nil {
		ib := a.Image.Bounds()
		x := b.Min.X + (w-ib.Dx())/2
		y := b.Min.Y + (h-ib.Dy())/2
		r := image.Rect(x, y, x+ib.Dx(), y+ib.Dy())
		draw.Draw(dst, r, a.Image, ib.Min, draw.Over)
	}
}

// LoadImage decodes the placeholder PNG at path
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open placeholder image: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode placeholder image: %w", err)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba, nil
}
