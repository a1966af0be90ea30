package render

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Badge renders text in the basic 7x13 face, scaled up by an integer factor,
// on a translucent dark plate. It stands in for the placeholder image when
// none is configured.
func Badge(text string, scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	face := basicfont.Face7x13
	padding := 4

	d := &font.Drawer{Face: face}
	textW := d.MeasureString(text).Ceil()
	w := textW + padding*2
	h := face.Height + padding*2

	small := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(small, small.Bounds(), image.NewUniform(color.RGBA{0, 0, 0, 0x90}), image.Point{}, xdraw.Src)

	d.Dst = small
	d.Src = image.NewUniform(color.RGBA{0xFF, 0xFF, 0xFF, 0xFF})
	d.Dot = fixed.P(padding, padding+face.Ascent)
	d.DrawString(text)

	big := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	xdraw.NearestNeighbor.Scale(big, big.Bounds(), small, small.Bounds(), xdraw.Src, nil)
	return big
}
