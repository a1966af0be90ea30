package display

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/PTZView/internal/event"
)

// translator maps X11 events for one window onto loop events
type translator struct {
	window     xproto.Window
	deleteAtom xproto.Atom
	enterKeys  map[xproto.Keycode]bool
}

func (t translator) key(code xproto.Keycode) event.Key {
	if t.enterKeys[code] {
		return event.KeyEnter
	}
	return event.KeyOther
}

func (t translator) translate(ev xgb.Event) (event.Event, bool) {
	switch e := ev.(type) {
	case xproto.ClientMessageEvent:
		if e.Window == t.window && t.deleteAtom != 0 && e.Format == 32 &&
			len(e.Data.Data32) > 0 && xproto.Atom(e.Data.Data32[0]) == t.deleteAtom {
			return event.Quit{}, true
		}
	case xproto.DestroyNotifyEvent:
		if e.Window == t.window {
			return event.Quit{}, true
		}
	case xproto.ConfigureNotifyEvent:
		if e.Window == t.window {
			return event.Resize{Width: int(e.Width), Height: int(e.Height)}, true
		}
	case xproto.KeyPressEvent:
		return event.KeyChord{
			Key: t.key(e.Detail),
			Alt: e.State&xproto.ModMask1 != 0,
		}, true
	case xproto.KeyReleaseEvent:
		return event.KeyChord{
			Key:      t.key(e.Detail),
			Alt:      e.State&xproto.ModMask1 != 0,
			Released: true,
		}, true
	case xproto.ButtonPressEvent:
		return event.MouseButton{
			Button:  int(e.Detail),
			Pressed: true,
			X:       int(e.EventX),
			Y:       int(e.EventY),
		}, true
	case xproto.ButtonReleaseEvent:
		return event.MouseButton{
			Button: int(e.Detail),
			X:      int(e.EventX),
			Y:      int(e.EventY),
		}, true
	}
	return nil, false
}
