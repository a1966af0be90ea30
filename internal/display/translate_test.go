package display

import (
	"testing"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/PTZView/internal/event"
)

func TestTranslate(t *testing.T) {
	const win xproto.Window = 42
	const del xproto.Atom = 300
	tr := translator{
		window:     win,
		deleteAtom: del,
		enterKeys:  map[xproto.Keycode]bool{36: true, 104: true},
	}

	tests := []struct {
		name   string
		in     xgb.Event
		want   event.Event
		wantOK bool
	}{
		{
			"delete window",
			xproto.ClientMessageEvent{Format: 32, Window: win, Data: xproto.ClientMessageDataUnionData32New([]uint32{uint32(del), 0, 0, 0, 0})},
			event.Quit{}, true,
		},
		{
			"other client message",
			xproto.ClientMessageEvent{Format: 32, Window: win, Data: xproto.ClientMessageDataUnionData32New([]uint32{7, 0, 0, 0, 0})},
			nil, false,
		},
		{"destroyed", xproto.DestroyNotifyEvent{Window: win}, event.Quit{}, true},
		{"resize", xproto.ConfigureNotifyEvent{Window: win, Width: 800, Height: 600}, event.Resize{Width: 800, Height: 600}, true},
		{"other window resize", xproto.ConfigureNotifyEvent{Window: 7, Width: 1, Height: 1}, nil, false},
		{"alt enter", xproto.KeyPressEvent{Detail: 36, State: xproto.ModMask1}, event.KeyChord{Key: event.KeyEnter, Alt: true}, true},
		{"keypad enter", xproto.KeyPressEvent{Detail: 104}, event.KeyChord{Key: event.KeyEnter}, true},
		{"other key release", xproto.KeyReleaseEvent{Detail: 38}, event.KeyChord{Key: event.KeyOther, Released: true}, true},
		{"right click", xproto.ButtonPressEvent{Detail: 3, EventX: 10, EventY: 20}, event.MouseButton{Button: event.MouseRight, Pressed: true, X: 10, Y: 20}, true},
		{"left release", xproto.ButtonReleaseEvent{Detail: 1}, event.MouseButton{Button: event.MouseLeft}, true},
		{"expose ignored", xproto.ExposeEvent{Window: win}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tr.translate(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("translate() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("translate() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
