package event

import (
	"fmt"
	"strings"
	"time"
)

// CommandKind is an operator command delivered from outside the window
// (HTTP API, MQTT).
type CommandKind string

const (
	CommandConnect          CommandKind = "connect"
	CommandDisconnect       CommandKind = "disconnect"
	CommandToggleFullscreen CommandKind = "toggle_fullscreen"
	CommandStopPTZ          CommandKind = "stop_ptz"
	CommandExit             CommandKind = "exit"
)

// Command is an operator command. Source is only used by CommandConnect.
type Command struct {
	Kind   CommandKind `json:"kind"`
	Source string      `json:"source,omitempty"`
}

// Validate reports whether the command can be executed
func (c Command) Validate() error {
	switch c.Kind {
	case CommandConnect:
		if strings.TrimSpace(c.Source) == "" {
			return fmt.Errorf("connect command requires a source")
		}
	case CommandDisconnect, CommandToggleFullscreen, CommandStopPTZ, CommandExit:
	default:
		return fmt.Errorf("unknown command %q", c.Kind)
	}
	return nil
}

// Status is a snapshot of what the monitor is showing
type Status struct {
	Source      string    `json:"source"`
	Connected   bool      `json:"connected"`
	Connections int       `json:"connections"`
	Fullscreen  bool      `json:"fullscreen"`
	Pan         float32   `json:"pan"`
	Tilt        float32   `json:"tilt"`
	Zoom        float32   `json:"zoom"`
	Joysticks   int       `json:"joysticks"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StatusSink receives status snapshots whenever the source or connection changes
type StatusSink interface {
	PublishStatus(Status)
}
