// Package event defines the input and operator events consumed by the
// control loop, and the status snapshots it publishes.
package event

// Event is one item drained from the display/input backend or an operator
// command channel.
type Event interface {
	event()
}

// Key identifies the keys the monitor reacts to
type Key int

const (
	KeyOther Key = iota
	KeyEnter
)

// Mouse buttons, numbered as X11 does
const (
	MouseLeft   = 1
	MouseMiddle = 2
	MouseRight  = 3
)

// Quit is a window close request
type Quit struct{}

// KeyChord is a key transition with the modifier state at that moment
type KeyChord struct {
	Key      Key
	Alt      bool
	Released bool
}

// MouseButton is a pointer button transition
type MouseButton struct {
	Button  int
	Pressed bool
	X, Y    int
}

// JoystickAxis is a change of one joystick axis
type JoystickAxis struct {
	Device int
	Axis   int
	Value  int16
}

// JoystickButton is a joystick button transition
type JoystickButton struct {
	Device  int
	Button  int
	Pressed bool
}

// JoystickAttach reports a newly available joystick device
type JoystickAttach struct {
	Device int
	Name   string
}

// JoystickDetach reports a joystick that went away
type JoystickDetach struct {
	Device int
}

// Resize reports a new window size
type Resize struct {
	Width, Height int
}

// MenuSelection is the result of an asynchronous context menu. An empty
// Value means the menu was dismissed.
type MenuSelection struct {
	Value string
	Err   error
}

func (Quit) event()           {}
func (KeyChord) event()       {}
func (MouseButton) event()    {}
func (JoystickAxis) event()   {}
func (JoystickButton) event() {}
func (JoystickAttach) event() {}
func (JoystickDetach) event() {}
func (Resize) event()         {}
func (MenuSelection) event()  {}
func (Command) event()        {}
