// Package display owns the monitor window: it turns window-system and
// joystick input into events and presents composed frames.
package display

import (
	"errors"
	"image"

	"github.com/bryanchriswhite/PTZView/internal/event"
)

// ErrInit wraps any failure to bring up the window system. The monitor cannot
// run without it.
var ErrInit = errors.New("display initialization failed")

// Joystick is an open joystick handle
type Joystick interface {
	ID() int
	Name() string
	Close() error
}

// Backend is the window the control loop draws into
type Backend interface {
	// PollEvent returns the next pending event without blocking
	PollEvent() (event.Event, bool)

	// Present shows img and waits for the next refresh slot
	Present(img *image.RGBA) error

	SetTitle(title string) error
	ToggleFullscreen() error
	Fullscreen() bool

	// Size is the current drawable size in pixels
	Size() (width, height int)

	OpenJoystick(id int) (Joystick, error)
	Close() error
}
