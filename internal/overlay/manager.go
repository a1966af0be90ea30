package overlay

import (
	"fmt"
	"image"

	"github.com/bryanchriswhite/PTZView/internal/event"
	"github.com/bryanchriswhite/PTZView/internal/logger"
)

// Manager holds the on-screen display widgets. Widgets render in the order
// they were added. It is owned by the control loop and not locked.
type Manager struct {
	widgets []Widget
	enabled bool
}

// NewManager creates a new overlay manager
func NewManager() *Manager {
	return &Manager{enabled: true}
}

// NewDefault creates the standard display: source name top-left and the
// PTZ speed readout bottom-left
func NewDefault() *Manager {
	m := NewManager()
	m.AddWidget(NewTextWidget("source", TopLeft, SourceLabel))
	m.AddWidget(NewTextWidget("ptz", BottomLeft, PTZReadout))
	return m
}

// AddWidget adds a widget to the overlay
func (m *Manager) AddWidget(widget Widget) error {
	for _, w := range m.widgets {
		if w.ID() == widget.ID() {
			return fmt.Errorf("widget with ID %s already exists", widget.ID())
		}
	}

	m.widgets = append(m.widgets, widget)
	logger.WithComponent("overlay").Debug().Str("widget", widget.ID()).Msg("Added widget")
	return nil
}

// RemoveWidget removes a widget from the overlay
func (m *Manager) RemoveWidget(id string) error {
	for i, w := range m.widgets {
		if w.ID() == id {
			m.widgets = append(m.widgets[:i], m.widgets[i+1:]...)
			logger.WithComponent("overlay").Debug().Str("widget", id).Msg("Removed widget")
			return nil
		}
	}
	return fmt.Errorf("widget with ID %s not found", id)
}

// GetWidget retrieves a widget by ID
func (m *Manager) GetWidget(id string) (Widget, bool) {
	for _, w := range m.widgets {
		if w.ID() == id {
			return w, true
		}
	}
	return nil, false
}

// SetEnabled enables or disables the entire overlay
func (m *Manager) SetEnabled(enabled bool) {
	m.enabled = enabled
}

// IsEnabled returns whether the overlay is enabled
func (m *Manager) IsEnabled() bool {
	return m.enabled
}

// Update passes the status to every widget
func (m *Manager) Update(st event.Status) {
	for _, w := range m.widgets {
		w.Update(st)
	}
}

// Render renders all enabled widgets onto the provided image
func (m *Manager) Render(img *image.RGBA) {
	if !m.enabled {
		return
	}

	for _, w := range m.widgets {
		if !w.IsEnabled() {
			continue
		}
		if err := w.Render(img); err != nil {
			logger.WithComponent("overlay").Warn().
				Err(err).
				Str("widget", w.ID()).
				Msg("Failed to render widget")
		}
	}
}
