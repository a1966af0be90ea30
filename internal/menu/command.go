package menu

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/bryanchriswhite/PTZView/internal/logger"
	"github.com/bryanchriswhite/PTZView/internal/source"
)

// DefaultTimeout bounds how long a menu may stay open
const DefaultTimeout = 2 * time.Minute

// Command shows the menu through a dmenu-style program: entries on stdin,
// the chosen line on stdout, exit status 1 on dismissal
type Command struct {
	command string
	timeout time.Duration

	// run is swapped in tests
	run func(ctx context.Context, command string, stdin []byte) ([]byte, error)
}

// NewCommand creates a provider running command through sh -c
func NewCommand(command string) (*Command, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("menu command is empty")
	}
	return &Command{command: command, timeout: DefaultTimeout, run: runShell}, nil
}

func runShell(ctx context.Context, command string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdin = bytes.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, ErrDismissed
		}
		return nil, fmt.Errorf("menu command failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Show implements Provider
func (c *Command) Show(groups []source.Group) (string, error) {
	entries := Entries(groups)

	var stdin bytes.Buffer
	byLabel := make(map[string]Entry, len(entries))
	for _, e := range entries {
		stdin.WriteString(e.Label)
		stdin.WriteByte('\n')
		byLabel[e.Label] = e
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	logger.WithComponent("menu").Debug().
		Str("command", c.command).
		Int("entries", len(entries)).
		Msg("Showing menu")

	out, err := c.run(ctx, c.command, stdin.Bytes())
	if err != nil {
		return "", err
	}

	label := strings.TrimSpace(string(out))
	if label == "" {
		return "", ErrDismissed
	}
	if e, ok := byLabel[label]; ok {
		if e.Header {
			return "", ErrDismissed
		}
		return e.Value, nil
	}
	// typed by hand
	return label, nil
}
