package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/bryanchriswhite/PTZView/internal/frame"
)

func TestCompositorDrawLiveLetterboxes(t *testing.T) {
	// 4x2 white frame into a 8x8 window: 8x4 picture, 2 black rows above
	const w, h = 4, 2
	data := make([]byte, w*h*frame.BytesPerPixel)
	for i := 0; i < len(data); i += 4 {
		data[i], data[i+1], data[i+2], data[i+3] = 128, 235, 128, 235
	}
	var s frame.Surface
	if err := frame.Convert(&frame.VideoFrame{Width: w, Height: h, Stride: w * 2, Data: data}, &s); err != nil {
		t.Fatal(err)
	}

	c := NewCompositor(NewAnimator(testColorA, testColorB, nil))
	canvas, rect := c.DrawLive(&s, 8, 8)

	if want := image.Rect(0, 2, 8, 6); rect != want {
		t.Fatalf("fit rect = %v, want %v", rect, want)
	}
	black := color.RGBA{0, 0, 0, 0xFF}
	if got := canvas.RGBAAt(4, 0); got != black {
		t.Errorf("letterbox bar = %v, want black", got)
	}
	if got := canvas.RGBAAt(4, 4); got.R < 200 || got.G < 200 || got.B < 200 {
		t.Errorf("picture pixel = %v, want near white", got)
	}
}

func TestCompositorCanvasReuse(t *testing.T) {
	c := NewCompositor(NewAnimator(testColorA, testColorB, nil))
	a := c.DrawPlaceholder(10, 10)
	b := c.DrawPlaceholder(10, 10)
	if a != b {
		t.Error("canvas reallocated for an unchanged size")
	}
	if d := c.DrawPlaceholder(20, 10); d == a || d.Bounds().Dx() != 20 {
		t.Error("canvas not resized")
	}
}
