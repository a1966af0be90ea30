// Package monitor runs the control loop: it polls input, steers the camera,
// draws the newest frame or the placeholder, and presents it, once per
// refresh.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/bryanchriswhite/PTZView/internal/display"
	"github.com/bryanchriswhite/PTZView/internal/event"
	"github.com/bryanchriswhite/PTZView/internal/frame"
	"github.com/bryanchriswhite/PTZView/internal/logger"
	"github.com/bryanchriswhite/PTZView/internal/menu"
	"github.com/bryanchriswhite/PTZView/internal/output"
	"github.com/bryanchriswhite/PTZView/internal/overlay"
	"github.com/bryanchriswhite/PTZView/internal/ptz"
	"github.com/bryanchriswhite/PTZView/internal/render"
	"github.com/bryanchriswhite/PTZView/internal/source"
	"github.com/rs/zerolog"
)

// State of the control loop
type State int

const (
	StateRunning State = iota
	StateShuttingDown
)

func (s State) String() string {
	if s == StateShuttingDown {
		return "shutting_down"
	}
	return "running"
}

// NoSourceTitle is shown in the title bar when nothing is selected
const NoSourceTitle = "(None)"

// LastSourceStore remembers the last connected source across runs
type LastSourceStore interface {
	SetLastSource(fullName string) error
}

// Options are the optional collaborators of a Loop
type Options struct {
	// Title is the window title prefix
	Title string

	// DeadZone for joystick axes; ptz.DefaultDeadZone when zero
	DeadZone int16

	// Menu is shown synchronously on right click unless AsyncMenu is set
	Menu      menu.Provider
	AsyncMenu menu.AsyncProvider

	// Commands delivers operator commands from the API or MQTT
	Commands <-chan event.Event

	// Sinks receive a status snapshot whenever it changes
	Sinks []event.StatusSink

	// OSD is drawn over every frame when set
	OSD *overlay.Manager

	// Outputs receive every presented frame
	Outputs []output.FrameSink

	// LastSource records successful connections
	LastSource LastSourceStore

	// Closers are released together with the frame source
	Closers []io.Closer
}

// Stats counts what the loop has drawn
type Stats struct {
	Iterations        uint64
	LiveFrames        uint64
	PlaceholderFrames uint64
	Conversions       uint64
	TitleUpdates      uint64
}

// Loop is the per-frame orchestrator. All of its state is owned by the
// goroutine calling Run or Step.
type Loop struct {
	backend    display.Backend
	src        source.FrameSource
	catalog    *source.Catalog
	compositor *render.Compositor
	opts       Options
	log        *zerolog.Logger

	state     State
	surface   frame.Surface
	tracker   source.Tracker
	control   ptz.ControlState
	halted    bool
	sent      bool
	joysticks map[int]display.Joystick
	lastCount int
	dirty     bool
	stats     Stats

	menuResults  chan event.Event
	intakeMu     sync.Mutex
	intakeClosed bool

	teardownOnce sync.Once
}

// New creates a loop. backend, src, catalog and compositor are owned by the
// loop from here on and released by Teardown.
func New(backend display.Backend, src source.FrameSource, catalog *source.Catalog, compositor *render.Compositor, opts Options) *Loop {
	if opts.DeadZone <= 0 {
		opts.DeadZone = ptz.DefaultDeadZone
	}
	if opts.Title == "" {
		opts.Title = "PTZView"
	}

	return &Loop{
		backend:     backend,
		src:         src,
		catalog:     catalog,
		compositor:  compositor,
		opts:        opts,
		log:         logger.WithComponent("monitor"),
		joysticks:   make(map[int]display.Joystick),
		menuResults: make(chan event.Event, 4),
		dirty:       true,
	}
}

// State returns the loop state
func (l *Loop) State() State {
	return l.state
}

// Stats returns the frame counters
func (l *Loop) Stats() Stats {
	return l.stats
}

// Control returns the current PTZ speeds
func (l *Loop) Control() ptz.ControlState {
	return l.control
}

// Run steps until shutdown or ctx is done, then tears down. A panic inside
// the loop is logged as terminating and returned as an error; teardown still
// runs.
func (l *Loop) Run(ctx context.Context) (err error) {
	defer l.Teardown()
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic("monitor", r, true)
			err = fmt.Errorf("control loop panic: %v", r)
		}
	}()

	l.log.Info().Msg("Control loop started")
	for l.state == StateRunning {
		select {
		case <-ctx.Done():
			l.log.Info().Msg("Context cancelled, shutting down")
			l.state = StateShuttingDown
			continue
		default:
		}
		l.Step()
	}
	l.log.Info().Uint64("iterations", l.stats.Iterations).Msg("Control loop stopped")
	return nil
}

// Step runs one iteration and returns the resulting state
func (l *Loop) Step() State {
	if l.state != StateRunning {
		return l.state
	}
	l.stats.Iterations++
	l.sent = false

	l.observeConnection()
	l.drainEvents()
	if l.state != StateRunning {
		return l.state
	}

	// held speeds go out once per frame
	if l.control.Moving() && !l.halted && !l.sent {
		l.control.Dispatch(l.src)
	}

	canvas := l.compose()
	if l.opts.OSD != nil && l.opts.OSD.IsEnabled() {
		l.opts.OSD.Update(l.status())
		l.opts.OSD.Render(canvas)
	}
	if err := l.backend.Present(canvas); err != nil {
		l.log.Warn().Err(err).Msg("Failed to present frame")
	}
	for _, out := range l.opts.Outputs {
		out.WriteFrame(canvas)
	}

	if l.dirty {
		l.publish()
	}
	return l.state
}

// observeConnection polls the source once and retitles when a new source
// name shows up
func (l *Loop) observeConnection() {
	if l.tracker.Observe(l.src) {
		if name, ok := l.tracker.Name(); ok && name != "" {
			l.setTitle(name)
		}
		l.dirty = true
	}
	if count := l.tracker.Count(); count != l.lastCount {
		l.log.Info().
			Int("connections", count).
			Int("previous", l.lastCount).
			Msg("Connection count changed")
		l.lastCount = count
		l.dirty = true
	}
}

func (l *Loop) setTitle(name string) {
	title := fmt.Sprintf("%s - %s", l.opts.Title, name)
	if err := l.backend.SetTitle(title); err != nil {
		l.log.Warn().Err(err).Str("title", title).Msg("Failed to set window title")
	}
	l.stats.TitleUpdates++
}

// drainEvents handles everything pending without blocking
func (l *Loop) drainEvents() {
	for l.state == StateRunning {
		ev, ok := l.backend.PollEvent()
		if !ok {
			break
		}
		l.handle(ev)
	}

	for l.state == StateRunning {
		select {
		case ev := <-l.menuResults:
			l.handle(ev)
			continue
		default:
		}
		break
	}

	for l.state == StateRunning && l.opts.Commands != nil {
		select {
		case ev, ok := <-l.opts.Commands:
			if !ok {
				l.opts.Commands = nil
				return
			}
			l.handle(ev)
			continue
		default:
		}
		break
	}
}

func (l *Loop) handle(ev event.Event) {
	switch e := ev.(type) {
	case event.Quit:
		l.log.Info().Msg("Window closed")
		l.state = StateShuttingDown

	case event.KeyChord:
		if e.Key == event.KeyEnter && e.Alt && e.Released {
			l.apply(menu.Action{Kind: menu.ActionToggleFullscreen})
		}

	case event.MouseButton:
		if e.Button == event.MouseRight && e.Pressed {
			l.showMenu()
		}

	case event.JoystickAxis:
		speed := -ptz.NormalizeWith(e.Value, l.opts.DeadZone, ptz.MaxRaw)
		if !l.control.ApplyAxis(e.Axis, speed) {
			l.log.Debug().Int("axis", e.Axis).Msg("Axis not mapped")
		}
		l.halted = false
		l.control.Dispatch(l.src)
		l.sent = true

	case event.JoystickButton:
		if e.Button == 0 && !e.Pressed {
			l.stopPTZ()
		}

	case event.JoystickAttach:
		l.attachJoystick(e)

	case event.JoystickDetach:
		l.detachJoystick(e.Device)

	case event.Resize:
		l.log.Debug().Int("width", e.Width).Int("height", e.Height).Msg("Window resized")

	case event.MenuSelection:
		if e.Err != nil && !errors.Is(e.Err, menu.ErrDismissed) {
			l.log.Warn().Err(e.Err).Msg("Menu failed")
		}
		l.apply(menu.Interpret(e.Value))

	case event.Command:
		l.command(e)
	}
}

func (l *Loop) stopPTZ() {
	l.src.SendPanTiltStop()
	l.halted = true
	l.dirty = true
}

func (l *Loop) attachJoystick(e event.JoystickAttach) {
	if _, ok := l.joysticks[e.Device]; ok {
		return
	}
	js, err := l.backend.OpenJoystick(e.Device)
	if err != nil {
		l.log.Warn().Err(err).Int("device", e.Device).Msg("Failed to open joystick")
		return
	}
	l.joysticks[e.Device] = js
	l.dirty = true
	l.log.Info().Int("device", e.Device).Str("name", js.Name()).Msg("Joystick attached")
}

func (l *Loop) detachJoystick(id int) {
	js, ok := l.joysticks[id]
	if !ok {
		return
	}
	delete(l.joysticks, id)
	if err := js.Close(); err != nil {
		l.log.Warn().Err(err).Int("device", id).Msg("Error closing joystick")
	}
	l.dirty = true
	l.log.Info().Int("device", id).Msg("Joystick detached")
}

func (l *Loop) showMenu() {
	groups := l.catalog.Groups()

	if l.opts.AsyncMenu != nil {
		l.opts.AsyncMenu.ShowAsync(groups, l.deliverMenuResult)
		return
	}
	if l.opts.Menu != nil {
		l.apply(menu.Interpret(menu.SafeShow(l.opts.Menu, groups)))
	}
}

// deliverMenuResult may run on the menu's goroutine
func (l *Loop) deliverMenuResult(selection string, err error) {
	l.intakeMu.Lock()
	defer l.intakeMu.Unlock()
	if l.intakeClosed {
		return
	}

	select {
	case l.menuResults <- event.MenuSelection{Value: selection, Err: err}:
	default:
		l.log.Warn().Str("selection", selection).Msg("Dropping menu selection, loop is behind")
	}
}

func (l *Loop) command(c event.Command) {
	if err := c.Validate(); err != nil {
		l.log.Warn().Err(err).Msg("Ignoring invalid command")
		return
	}
	l.log.Info().Str("kind", string(c.Kind)).Str("source", c.Source).Msg("Operator command")

	switch c.Kind {
	case event.CommandConnect:
		l.apply(menu.Action{Kind: menu.ActionConnect, Source: c.Source})
	case event.CommandDisconnect:
		l.apply(menu.Action{Kind: menu.ActionDisconnect})
	case event.CommandToggleFullscreen:
		l.apply(menu.Action{Kind: menu.ActionToggleFullscreen})
	case event.CommandStopPTZ:
		l.stopPTZ()
	case event.CommandExit:
		l.apply(menu.Action{Kind: menu.ActionExit})
	}
}

func (l *Loop) apply(a menu.Action) {
	switch a.Kind {
	case menu.ActionConnect:
		if err := l.src.Connect(a.Source); err != nil {
			l.log.Warn().Err(err).Str("source", a.Source).Msg("Failed to connect")
			return
		}
		l.resetControl()
		if name, ok := l.src.CurrentSourceName(); ok && l.opts.LastSource != nil {
			if err := l.opts.LastSource.SetLastSource(name); err != nil {
				l.log.Warn().Err(err).Msg("Failed to remember source")
			}
		}

	case menu.ActionDisconnect:
		l.src.Disconnect()
		l.resetControl()
		// resync so reconnecting to the same source retitles
		l.tracker.Observe(l.src)
		l.setTitle(NoSourceTitle)

	case menu.ActionToggleFullscreen:
		if err := l.backend.ToggleFullscreen(); err != nil {
			l.log.Warn().Err(err).Msg("Failed to toggle fullscreen")
		}
		l.dirty = true

	case menu.ActionExit:
		l.log.Info().Msg("Exit requested")
		l.state = StateShuttingDown
	}
}

// resetControl forgets speeds that belonged to the previous camera
func (l *Loop) resetControl() {
	l.control = ptz.ControlState{}
	l.halted = false
	l.dirty = true
}

// compose draws the live frame when the source is connected and a frame is
// ready; otherwise the placeholder
func (l *Loop) compose() *image.RGBA {
	w, h := l.backend.Size()

	f, ok := l.src.TryCaptureFrame()
	if ok {
		converted := false
		if l.tracker.Live() {
			if err := frame.Convert(f, &l.surface); err != nil {
				if !errors.Is(err, frame.ErrNoData) {
					l.log.Debug().Err(err).Msg("Dropping frame")
				}
			} else {
				converted = true
				l.stats.Conversions++
			}
		}
		l.src.ReleaseFrame(f)

		if converted {
			canvas, _ := l.compositor.DrawLive(&l.surface, w, h)
			l.stats.LiveFrames++
			return canvas
		}
	}

	l.stats.PlaceholderFrames++
	return l.compositor.DrawPlaceholder(w, h)
}

func (l *Loop) status() event.Status {
	name, _ := l.tracker.Name()
	return event.Status{
		Source:      name,
		Connected:   l.tracker.Live(),
		Connections: l.tracker.Count(),
		Fullscreen:  l.backend.Fullscreen(),
		Pan:         l.control.Pan,
		Tilt:        l.control.Tilt,
		Zoom:        l.control.Zoom,
		Joysticks:   len(l.joysticks),
		UpdatedAt:   time.Now(),
	}
}

func (l *Loop) publish() {
	l.dirty = false
	if len(l.opts.Sinks) == 0 {
		return
	}
	st := l.status()
	for _, sink := range l.opts.Sinks {
		sink.PublishStatus(st)
	}
}

// Teardown releases everything the loop owns, exactly once, in dependency
// order: command intake, then connection handles, then render surfaces, then
// the display.
func (l *Loop) Teardown() {
	l.teardownOnce.Do(func() {
		l.state = StateShuttingDown

		l.intakeMu.Lock()
		l.intakeClosed = true
		l.intakeMu.Unlock()

		if err := l.src.Close(); err != nil {
			l.log.Warn().Err(err).Msg("Error closing frame source")
		}
		for id, js := range l.joysticks {
			js.Close()
			delete(l.joysticks, id)
		}
		for _, c := range l.opts.Closers {
			if err := c.Close(); err != nil {
				l.log.Warn().Err(err).Msg("Error releasing resource")
			}
		}

		l.surface.Release()
		l.compositor.Release()

		if err := l.backend.Close(); err != nil {
			l.log.Warn().Err(err).Msg("Error closing display")
		}
		l.log.Info().Msg("Teardown complete")
	})
}
