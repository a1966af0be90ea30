// Package output carries composed monitor frames beyond the window.
package output

import (
	"image"
)

// FrameSink receives every presented frame. WriteFrame is called on the
// control loop goroutine and must not block; implementations copy what they
// keep.
type FrameSink interface {
	WriteFrame(frame *image.RGBA)
}

// Config holds common configuration for frame outputs
type Config struct {
	FPS     int
	Quality int
}
