// Package source connects to named video sources and hands their frames to
// the control loop.
package source

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/bryanchriswhite/PTZView/internal/config"
	"github.com/bryanchriswhite/PTZView/internal/frame"
	"github.com/bryanchriswhite/PTZView/internal/ptz"
)

// ErrUnknownSource is returned when connecting to a name the catalog does not have
var ErrUnknownSource = errors.New("unknown source")

// FrameSource is what the control loop reads video and connection state from
// and sends camera commands through. Captured frames must be released before
// the next capture.
type FrameSource interface {
	TryCaptureFrame() (*frame.VideoFrame, bool)
	ReleaseFrame(f *frame.VideoFrame)
	ConnectionCount() int
	CurrentSourceName() (string, bool)
	Connect(name string) error
	Disconnect()
	Close() error

	ptz.Commander
}

// Group is the set of sources published by one computer
type Group struct {
	Computer string   `json:"computer"`
	Sources  []string `json:"sources"`
}

// Catalog is the set of sources that can be connected to, keyed by full name
type Catalog struct {
	mu      sync.RWMutex
	sources []config.Source
}

// NewCatalog creates a catalog from configured sources
func NewCatalog(sources []config.Source) *Catalog {
	c := &Catalog{}
	c.Replace(sources)
	return c
}

// Replace swaps in a new source list
func (c *Catalog) Replace(sources []config.Source) {
	cp := make([]config.Source, len(sources))
	copy(cp, sources)

	c.mu.Lock()
	c.sources = cp
	c.mu.Unlock()
}

// All returns a copy of every source
func (c *Catalog) All() []config.Source {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]config.Source, len(c.sources))
	copy(out, c.sources)
	return out
}

// Lookup finds a source by full name ("COMPUTER (NAME)"). A bare name is
// accepted when exactly one source carries it.
func (c *Catalog) Lookup(name string) (config.Source, error) {
	name = strings.TrimSpace(name)

	c.mu.RLock()
	defer c.mu.RUnlock()

	var match []config.Source
	for _, s := range c.sources {
		if s.FullName() == name {
			return s, nil
		}
		if s.Name == name {
			match = append(match, s)
		}
	}

	switch len(match) {
	case 1:
		return match[0], nil
	case 0:
		return config.Source{}, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	default:
		return config.Source{}, fmt.Errorf("%w: %q is ambiguous (%d sources)", ErrUnknownSource, name, len(match))
	}
}

// Groups returns the sources grouped by computer, both levels sorted
func (c *Catalog) Groups() []Group {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byComputer := make(map[string][]string)
	for _, s := range c.sources {
		byComputer[s.Computer] = append(byComputer[s.Computer], s.FullName())
	}

	groups := make([]Group, 0, len(byComputer))
	for computer, names := range byComputer {
		sort.Strings(names)
		groups = append(groups, Group{Computer: computer, Sources: names})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Computer < groups[j].Computer
	})
	return groups
}
