// Package menu shows the source selection menu and interprets the choice
package menu

import (
	"errors"
	"strings"

	"github.com/bryanchriswhite/PTZView/internal/logger"
	"github.com/bryanchriswhite/PTZView/internal/source"
)

// Selection values that are commands rather than source names
const (
	SentinelDisconnect       = "!!DISC"
	SentinelToggleFullscreen = "!!TOGGLEFS"
	SentinelExit             = "!!EXIT"
)

// Menu labels for the fixed entries
const (
	LabelNoSource   = "(No Source)"
	LabelFullscreen = "Toggle Full Screen"
	LabelExit       = "Exit"
)

// ErrDismissed means the menu closed without a choice
var ErrDismissed = errors.New("menu dismissed")

// Provider shows the menu and blocks until the user picks or dismisses
type Provider interface {
	Show(groups []source.Group) (string, error)
}

// AsyncProvider shows the menu and reports the choice through done, which
// may be called on another goroutine
type AsyncProvider interface {
	ShowAsync(groups []source.Group, done func(string, error))
}

// Entry is one line of the menu. Header entries label a computer's group and
// cannot be chosen.
type Entry struct {
	Label  string
	Value  string
	Header bool
}

// HeaderLabel is the line shown above a computer's sources
func HeaderLabel(computer string) string {
	return "-- " + computer + " --"
}

// Entries lays out the menu: disconnect, one header per computer followed by
// its sources, then fullscreen and exit
func Entries(groups []source.Group) []Entry {
	entries := []Entry{{Label: LabelNoSource, Value: SentinelDisconnect}}
	for _, g := range groups {
		if len(g.Sources) == 0 {
			continue
		}
		entries = append(entries, Entry{Label: HeaderLabel(g.Computer), Header: true})
		for _, name := range g.Sources {
			entries = append(entries, Entry{Label: name, Value: name})
		}
	}
	return append(entries,
		Entry{Label: LabelFullscreen, Value: SentinelToggleFullscreen},
		Entry{Label: LabelExit, Value: SentinelExit},
	)
}

// ActionKind is what the loop should do with a selection
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionConnect
	ActionDisconnect
	ActionToggleFullscreen
	ActionExit
)

func (k ActionKind) String() string {
	switch k {
	case ActionConnect:
		return "connect"
	case ActionDisconnect:
		return "disconnect"
	case ActionToggleFullscreen:
		return "toggle_fullscreen"
	case ActionExit:
		return "exit"
	default:
		return "none"
	}
}

// Action is an interpreted selection
type Action struct {
	Kind   ActionKind
	Source string
}

// Interpret maps a selection onto an action. Anything that is not a sentinel
// is a source name; empty means no selection.
func Interpret(selection string) Action {
	selection = strings.TrimSpace(selection)
	switch selection {
	case "":
		return Action{Kind: ActionNone}
	case SentinelDisconnect:
		return Action{Kind: ActionDisconnect}
	case SentinelToggleFullscreen:
		return Action{Kind: ActionToggleFullscreen}
	case SentinelExit:
		return Action{Kind: ActionExit}
	default:
		return Action{Kind: ActionConnect, Source: selection}
	}
}

// SafeShow runs p.Show, turning a panic or error into a dismissal
func SafeShow(p Provider, groups []source.Group) (selection string) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic("menu", r, false)
			selection = ""
		}
	}()

	sel, err := p.Show(groups)
	if err != nil {
		if !errors.Is(err, ErrDismissed) {
			logger.WithComponent("menu").Warn().Err(err).Msg("Menu failed")
		}
		return ""
	}
	return sel
}
