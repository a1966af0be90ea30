package frame

import "image"

// Surface is the packed UYVY texture the live video is drawn from. It is
// recreated lazily whenever the incoming resolution changes.
type Surface struct {
	Width  int
	Height int
	Stride int
	Pix    []byte

	ycc *image.YCbCr
}

// Ensure sizes the surface for a w x h frame and reports whether the backing
// store was recreated.
func (s *Surface) Ensure(w, h int) bool {
	if s.Width == w && s.Height == h && s.Pix != nil {
		return false
	}
	s.Width = w
	s.Height = h
	s.Stride = w * BytesPerPixel
	s.Pix = make([]byte, s.Stride*h)
	s.ycc = nil
	return true
}

// Empty reports whether no frame has been copied in yet
func (s *Surface) Empty() bool {
	return s.Pix == nil
}

// Bounds of the surface in pixels
func (s *Surface) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.Width, s.Height)
}

// Release drops the backing store
func (s *Surface) Release() {
	s.Width, s.Height, s.Stride = 0, 0, 0
	s.Pix = nil
	s.ycc = nil
}

// YCbCr unpacks the surface into planar 4:2:2 so it can be scaled with the
// image/draw family. The planes are reused between calls.
func (s *Surface) YCbCr() *image.YCbCr {
	if s.Empty() {
		return nil
	}
	if s.ycc == nil || s.ycc.Rect.Dx() != s.Width || s.ycc.Rect.Dy() != s.Height {
		s.ycc = image.NewYCbCr(s.Bounds(), image.YCbCrSubsampleRatio422)
	}
	unpackUYVY(s.ycc, s.Pix, s.Stride, s.Width, s.Height)
	return s.ycc
}
