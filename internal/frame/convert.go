package frame

import "fmt"

// Convert copies f into s, resizing s first if the resolution changed. When
// the source stride matches the surface stride the whole image is copied at
// once; otherwise rows are copied one at a time, min(src, dst) stride bytes
// each, so row padding on either side is never read past or written past.
func Convert(f *VideoFrame, s *Surface) error {
	if err := f.Valid(); err != nil {
		return err
	}
	s.Ensure(f.Width, f.Height)

	if f.Stride == s.Stride {
		n := f.Stride * f.Height
		if len(f.Data) < n {
			return fmt.Errorf("%w: have %d, need %d", ErrShortBuffer, len(f.Data), n)
		}
		copy(s.Pix[:n], f.Data[:n])
		return nil
	}

	row := min(f.Stride, s.Stride)
	for y := 0; y < f.Height; y++ {
		src := f.Data[y*f.Stride:]
		if len(src) > row {
			src = src[:row]
		}
		copy(s.Pix[y*s.Stride:y*s.Stride+row], src)
	}
	return nil
}
