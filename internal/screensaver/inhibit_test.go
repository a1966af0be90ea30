package screensaver

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
)

type fakeObject struct {
	dbus.BusObject

	calls []string
	args  [][]interface{}
	fail  map[string]error
}

func (f *fakeObject) Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call {
	f.calls = append(f.calls, method)
	f.args = append(f.args, args)
	if err := f.fail[method]; err != nil {
		return &dbus.Call{Err: err}
	}
	if method == screenSaverIface+".Inhibit" {
		return &dbus.Call{Body: []interface{}{uint32(42)}}
	}
	return &dbus.Call{}
}

func TestInhibitAndRelease(t *testing.T) {
	obj := &fakeObject{}

	i, err := inhibitWith(obj, "PTZView", "Monitoring video")
	if err != nil {
		t.Fatalf("inhibitWith() error = %v", err)
	}
	if i.Cookie() != 42 {
		t.Errorf("Cookie() = %d, want 42", i.Cookie())
	}
	if got := obj.args[0]; got[0] != "PTZView" || got[1] != "Monitoring video" {
		t.Errorf("Inhibit args = %v", got)
	}

	if err := i.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := i.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if len(obj.calls) != 2 || obj.calls[1] != screenSaverIface+".UnInhibit" {
		t.Fatalf("calls = %v, want one Inhibit and one UnInhibit", obj.calls)
	}
	if cookie := obj.args[1][0].(uint32); cookie != 42 {
		t.Errorf("UnInhibit cookie = %d, want 42", cookie)
	}
}

func TestInhibitFailure(t *testing.T) {
	obj := &fakeObject{fail: map[string]error{
		screenSaverIface + ".Inhibit": errors.New("no such service"),
	}}

	if _, err := inhibitWith(obj, "PTZView", "x"); err == nil {
		t.Fatal("inhibitWith() succeeded, want error")
	}
}

func TestReleaseFailureReportedOnce(t *testing.T) {
	obj := &fakeObject{fail: map[string]error{
		screenSaverIface + ".UnInhibit": errors.New("gone"),
	}}
	i, err := inhibitWith(obj, "PTZView", "x")
	if err != nil {
		t.Fatalf("inhibitWith() error = %v", err)
	}

	if err := i.Release(); err == nil {
		t.Error("Release() error = nil, want failure")
	}
	if err := i.Release(); err != nil {
		t.Errorf("second Release() error = %v, want nil", err)
	}
}
