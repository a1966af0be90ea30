package menu

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bryanchriswhite/PTZView/internal/source"
)

var testGroups = []source.Group{
	{Computer: "BOOTH", Sources: []string{"BOOTH (CAM-1)"}},
	{Computer: "STUDIO", Sources: []string{"STUDIO (CAM-1)", "STUDIO (CAM-2)"}},
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		in   string
		want Action
	}{
		{"", Action{Kind: ActionNone}},
		{"  ", Action{Kind: ActionNone}},
		{"!!DISC", Action{Kind: ActionDisconnect}},
		{"!!TOGGLEFS", Action{Kind: ActionToggleFullscreen}},
		{"!!EXIT", Action{Kind: ActionExit}},
		{"STUDIO (CAM-1)", Action{Kind: ActionConnect, Source: "STUDIO (CAM-1)"}},
		{"!!OTHER", Action{Kind: ActionConnect, Source: "!!OTHER"}},
	}

	for _, tt := range tests {
		if got := Interpret(tt.in); got != tt.want {
			t.Errorf("Interpret(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestEntries(t *testing.T) {
	entries := Entries(testGroups)

	var labels []string
	for _, e := range entries {
		labels = append(labels, e.Label)
	}
	want := "(No Source)|-- BOOTH --|BOOTH (CAM-1)|-- STUDIO --|STUDIO (CAM-1)|STUDIO (CAM-2)|Toggle Full Screen|Exit"
	if got := strings.Join(labels, "|"); got != want {
		t.Errorf("labels = %s, want %s", got, want)
	}
	for _, i := range []int{1, 3} {
		if !entries[i].Header || entries[i].Value != "" {
			t.Errorf("entries[%d] = %+v, want header", i, entries[i])
		}
	}
	for _, i := range []int{2, 4, 5} {
		if entries[i].Header {
			t.Errorf("entries[%d] = %+v, want selectable source", i, entries[i])
		}
	}
	if entries[0].Value != SentinelDisconnect || entries[len(entries)-1].Value != SentinelExit {
		t.Errorf("sentinel values wrong: %+v", entries)
	}
}

func TestCommandShow(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		err     error
		want    string
		wantErr error
	}{
		{"source", "STUDIO (CAM-2)\n", nil, "STUDIO (CAM-2)", nil},
		{"exit label", "Exit\n", nil, SentinelExit, nil},
		{"no source label", "(No Source)", nil, SentinelDisconnect, nil},
		{"fullscreen label", "Toggle Full Screen\n", nil, SentinelToggleFullscreen, nil},
		{"typed", "ELSEWHERE (CAM)\n", nil, "ELSEWHERE (CAM)", nil},
		{"group header", "-- STUDIO --\n", nil, "", ErrDismissed},
		{"empty", "\n", nil, "", ErrDismissed},
		{"dismissed", "", ErrDismissed, "", ErrDismissed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCommand("dmenu")
			if err != nil {
				t.Fatal(err)
			}
			var stdin string
			c.run = func(ctx context.Context, command string, in []byte) ([]byte, error) {
				stdin = string(in)
				return []byte(tt.out), tt.err
			}

			got, err := c.Show(testGroups)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Show() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Show() = %q, want %q", got, tt.want)
			}
			if !strings.Contains(stdin, "STUDIO (CAM-1)\n") {
				t.Errorf("menu input missing sources: %q", stdin)
			}
		})
	}
}

func TestNewCommandRejectsEmpty(t *testing.T) {
	if _, err := NewCommand("  "); err == nil {
		t.Error("expected error for empty command")
	}
}

type funcProvider func([]source.Group) (string, error)

func (f funcProvider) Show(g []source.Group) (string, error) { return f(g) }

func TestSafeShowDegradesToDismissal(t *testing.T) {
	panicking := funcProvider(func([]source.Group) (string, error) { panic("boom") })
	if got := SafeShow(panicking, testGroups); got != "" {
		t.Errorf("SafeShow(panic) = %q", got)
	}

	failing := funcProvider(func([]source.Group) (string, error) { return "x", errors.New("no display") })
	if got := SafeShow(failing, testGroups); got != "" {
		t.Errorf("SafeShow(error) = %q", got)
	}

	ok := funcProvider(func([]source.Group) (string, error) { return "!!EXIT", nil })
	if got := SafeShow(ok, testGroups); got != "!!EXIT" {
		t.Errorf("SafeShow(ok) = %q", got)
	}
}

func TestAsyncSingleFlight(t *testing.T) {
	release := make(chan struct{})
	p := funcProvider(func([]source.Group) (string, error) {
		<-release
		return "STUDIO (CAM-1)", nil
	})
	a := NewAsync(p)

	var mu sync.Mutex
	var results []string
	done := make(chan struct{}, 2)
	cb := func(sel string, err error) {
		mu.Lock()
		results = append(results, sel)
		mu.Unlock()
		done <- struct{}{}
	}

	a.ShowAsync(testGroups, cb)
	a.ShowAsync(testGroups, cb)
	if !a.Busy() {
		t.Fatal("Busy() false while a menu is open")
	}
	close(release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback not called")
	}

	deadline := time.Now().Add(2 * time.Second)
	for a.Busy() {
		if time.Now().After(deadline) {
			t.Fatal("still busy after the menu closed")
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(results) != 1 || results[0] != "STUDIO (CAM-1)" {
		t.Errorf("results = %v, want one selection", results)
	}
}

func TestAsyncReportsDismissal(t *testing.T) {
	a := NewAsync(funcProvider(func([]source.Group) (string, error) { return "", ErrDismissed }))

	errc := make(chan error, 1)
	a.ShowAsync(nil, func(sel string, err error) { errc <- err })

	select {
	case err := <-errc:
		if !errors.Is(err, ErrDismissed) {
			t.Errorf("err = %v, want ErrDismissed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback not called")
	}
}
