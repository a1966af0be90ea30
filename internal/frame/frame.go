// Package frame holds decoded video frames and the render surface they are
// copied into.
package frame

import (
	"errors"
	"fmt"
)

// Format identifies the pixel layout of a frame
type Format int

const (
	// FormatUYVY is packed 4:2:2, two bytes per pixel (U0 Y0 V0 Y1)
	FormatUYVY Format = iota
)

// BytesPerPixel for UYVY
const BytesPerPixel = 2

var (
	// ErrNoData means the frame carries no pixel buffer
	ErrNoData = errors.New("frame has no data")

	// ErrShortBuffer means the frame buffer is smaller than Stride*Height
	ErrShortBuffer = errors.New("frame buffer shorter than stride*height")
)

func (f Format) String() string {
	switch f {
	case FormatUYVY:
		return "UYVY"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// VideoFrame is one captured frame. Data is owned by the frame source and is
// only valid until the frame is released.
type VideoFrame struct {
	Width  int
	Height int
	Stride int
	Data   []byte
	Format Format
}

// RowBytes is the number of meaningful bytes in one row
func (f *VideoFrame) RowBytes() int {
	return f.Width * BytesPerPixel
}

// Valid checks that the frame describes a buffer Convert can read
func (f *VideoFrame) Valid() error {
	if f == nil || len(f.Data) == 0 {
		return ErrNoData
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	if f.Format != FormatUYVY {
		return fmt.Errorf("unsupported pixel format %s", f.Format)
	}
	if f.Stride < f.RowBytes() {
		return fmt.Errorf("stride %d smaller than row of %d bytes", f.Stride, f.RowBytes())
	}
	if need := f.Stride*(f.Height-1) + f.RowBytes(); len(f.Data) < need {
		return fmt.Errorf("%w: have %d, need %d", ErrShortBuffer, len(f.Data), need)
	}
	return nil
}
