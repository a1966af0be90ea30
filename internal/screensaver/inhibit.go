// Package screensaver keeps the desktop screensaver away while the monitor
// window is open, through the org.freedesktop.ScreenSaver D-Bus interface.
package screensaver

import (
	"fmt"
	"sync"

	"github.com/bryanchriswhite/PTZView/internal/logger"
	"github.com/godbus/dbus/v5"
)

// ScreenSaver D-Bus constants
const (
	screenSaverService = "org.freedesktop.ScreenSaver"
	screenSaverPath    = "/org/freedesktop/ScreenSaver"
	screenSaverIface   = "org.freedesktop.ScreenSaver"
)

// Inhibitor holds one inhibition cookie until released
type Inhibitor struct {
	conn *dbus.Conn
	obj  dbus.BusObject

	mu       sync.Mutex
	cookie   uint32
	released bool
}

// Inhibit connects to the session bus and inhibits the screensaver on behalf
// of app
func Inhibit(app, reason string) (*Inhibitor, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	i, err := inhibitWith(conn.Object(screenSaverService, screenSaverPath), app, reason)
	if err != nil {
		conn.Close()
		return nil, err
	}
	i.conn = conn
	return i, nil
}

func inhibitWith(obj dbus.BusObject, app, reason string) (*Inhibitor, error) {
	call := obj.Call(screenSaverIface+".Inhibit", 0, app, reason)
	if call.Err != nil {
		return nil, fmt.Errorf("screensaver inhibit failed: %w", call.Err)
	}

	i := &Inhibitor{obj: obj}
	if err := call.Store(&i.cookie); err != nil {
		return nil, fmt.Errorf("failed to parse inhibit cookie: %w", err)
	}

	logger.WithComponent("screensaver").Info().
		Uint32("cookie", i.cookie).
		Msg("Screensaver inhibited")
	return i, nil
}

// Cookie is the inhibition cookie returned by the screensaver service
func (i *Inhibitor) Cookie() uint32 {
	return i.cookie
}

// Release lifts the inhibition. Calling it again does nothing.
func (i *Inhibitor) Release() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.released {
		return nil
	}
	i.released = true

	var err error
	if call := i.obj.Call(screenSaverIface+".UnInhibit", 0, i.cookie); call.Err != nil {
		err = fmt.Errorf("screensaver uninhibit failed: %w", call.Err)
	}
	if i.conn != nil {
		i.conn.Close()
	}

	logger.WithComponent("screensaver").Info().
		Uint32("cookie", i.cookie).
		Msg("Screensaver inhibition released")
	return err
}

// Close implements io.Closer
func (i *Inhibitor) Close() error {
	return i.Release()
}
