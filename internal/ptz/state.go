package ptz

// Joystick axis indices
const (
	AxisPan  = 0
	AxisTilt = 1
	AxisZoom = 3
)

// ControlState holds the speeds most recently derived from the joystick.
// Last write wins; nothing is queued.
type ControlState struct {
	Pan  float32
	Tilt float32
	Zoom float32
}

// ApplyAxis stores an already-normalized speed for the given axis index and
// reports whether the axis is one that drives the camera.
func (s *ControlState) ApplyAxis(axis int, speed float32) bool {
	switch axis {
	case AxisPan:
		s.Pan = speed
	case AxisTilt:
		s.Tilt = speed
	case AxisZoom:
		s.Zoom = speed
	default:
		return false
	}
	return true
}

// Moving reports whether any speed is nonzero
func (s ControlState) Moving() bool {
	return s.Pan != 0 || s.Tilt != 0 || s.Zoom != 0
}

// Commander is the remote-control side of a PTZ camera. Speeds are in
// [-1, 1]: positive pan moves left, positive tilt moves up, positive zoom
// zooms in.
type Commander interface {
	SendPanTiltSpeed(pan, tilt float32)
	SendZoomSpeed(zoom float32)
	SendPanTiltStop()
}

// Dispatch pushes the current speeds to the camera
func (s ControlState) Dispatch(c Commander) {
	c.SendPanTiltSpeed(s.Pan, s.Tilt)
	c.SendZoomSpeed(s.Zoom)
}
