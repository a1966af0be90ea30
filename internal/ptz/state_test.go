package ptz

import "testing"

type recordingCommander struct {
	calls []string
	pan   float32
	tilt  float32
	zoom  float32
}

func (r *recordingCommander) SendPanTiltSpeed(pan, tilt float32) {
	r.calls = append(r.calls, "pantilt")
	r.pan, r.tilt = pan, tilt
}

func (r *recordingCommander) SendZoomSpeed(zoom float32) {
	r.calls = append(r.calls, "zoom")
	r.zoom = zoom
}

func (r *recordingCommander) SendPanTiltStop() {
	r.calls = append(r.calls, "stop")
}

func TestControlStateApplyAxis(t *testing.T) {
	var s ControlState

	if !s.ApplyAxis(AxisPan, 0.5) || s.Pan != 0.5 {
		t.Errorf("pan axis not applied: %+v", s)
	}
	if !s.ApplyAxis(AxisTilt, -0.25) || s.Tilt != -0.25 {
		t.Errorf("tilt axis not applied: %+v", s)
	}
	if s.ApplyAxis(2, 1) {
		t.Error("axis 2 should be ignored")
	}
	if !s.ApplyAxis(AxisZoom, 1) || s.Zoom != 1 {
		t.Errorf("zoom axis not applied: %+v", s)
	}
	if !s.Moving() {
		t.Error("expected Moving() with nonzero speeds")
	}

	s.ApplyAxis(AxisPan, 0)
	s.ApplyAxis(AxisTilt, 0)
	s.ApplyAxis(AxisZoom, 0)
	if s.Moving() {
		t.Error("expected !Moving() after zeroing every axis")
	}
}

func TestControlStateDispatch(t *testing.T) {
	s := ControlState{Pan: 0.5, Tilt: -0.5, Zoom: 0.25}
	rec := &recordingCommander{}

	s.Dispatch(rec)

	if len(rec.calls) != 2 || rec.calls[0] != "pantilt" || rec.calls[1] != "zoom" {
		t.Fatalf("calls = %v, want [pantilt zoom]", rec.calls)
	}
	if rec.pan != 0.5 || rec.tilt != -0.5 || rec.zoom != 0.25 {
		t.Errorf("dispatched %v/%v/%v", rec.pan, rec.tilt, rec.zoom)
	}
}
