// Package input turns joystick devices into control-loop events. Devices are
// discovered by probing, opened on request, and read without blocking.
package input

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/0xcafed00d/joystick"
	"github.com/bryanchriswhite/PTZView/internal/event"
	"github.com/bryanchriswhite/PTZView/internal/logger"
)

// Device is an open joystick
type Device interface {
	Name() string
	AxisCount() int
	ButtonCount() int
	Read() (joystick.State, error)
	Close()
}

// OpenFunc opens joystick id
type OpenFunc func(id int) (Device, error)

// OpenDevice opens a system joystick
func OpenDevice(id int) (Device, error) {
	js, err := joystick.Open(id)
	if err != nil {
		return nil, err
	}
	return js, nil
}

// Info describes an attached joystick
type Info struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Axes    int    `json:"axes"`
	Buttons int    `json:"buttons"`
}

// Scan lists the joysticks that can be opened among ids [0, max)
func Scan(open OpenFunc, max int) []Info {
	var out []Info
	for id := 0; id < max; id++ {
		dev, err := open(id)
		if err != nil {
			continue
		}
		out = append(out, Info{ID: id, Name: dev.Name(), Axes: dev.AxisCount(), Buttons: dev.ButtonCount()})
		dev.Close()
	}
	return out
}

// Handle is a joystick opened through the hub. Closing it releases the device
// exactly once.
type Handle struct {
	id   int
	name string
	dev  Device
	hub  *Hub

	axes    []int
	buttons uint32
	lost    bool

	closeOnce sync.Once
}

// ID is the device index
func (h *Handle) ID() int { return h.id }

// Name is the device name reported by the driver
func (h *Handle) Name() string { return h.name }

// Close releases the device
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.dev.Close()
		h.hub.forget(h)
		logger.WithComponent("input").Debug().Int("device", h.id).Msg("Joystick closed")
	})
	return nil
}

// Hub discovers joysticks and reads the open ones. It is not safe for
// concurrent use; the control loop owns it.
type Hub struct {
	open         OpenFunc
	maxDevices   int
	scanInterval time.Duration
	now          func() time.Time

	lastScan time.Time
	present  map[int]string
	handles  map[int]*Handle
	queue    []event.Event
}

// NewHub creates a hub probing ids [0, maxDevices) every scanInterval
func NewHub(open OpenFunc, maxDevices int, scanInterval time.Duration) *Hub {
	if open == nil {
		open = OpenDevice
	}
	if scanInterval <= 0 {
		scanInterval = time.Second
	}
	return &Hub{
		open:         open,
		maxDevices:   maxDevices,
		scanInterval: scanInterval,
		now:          time.Now,
		present:      make(map[int]string),
		handles:      make(map[int]*Handle),
	}
}

// Open opens an attached joystick for reading
func (h *Hub) Open(id int) (*Handle, error) {
	if existing, ok := h.handles[id]; ok {
		return existing, nil
	}

	dev, err := h.open(id)
	if err != nil {
		return nil, fmt.Errorf("failed to open joystick %d: %w", id, err)
	}

	handle := &Handle{id: id, name: dev.Name(), dev: dev, hub: h}
	if state, err := dev.Read(); err == nil {
		handle.axes = append([]int(nil), state.AxisData...)
		handle.buttons = state.Buttons
	}
	h.handles[id] = handle

	logger.WithComponent("input").Info().
		Int("device", id).
		Str("name", handle.name).
		Int("axes", dev.AxisCount()).
		Int("buttons", dev.ButtonCount()).
		Msg("Joystick opened")
	return handle, nil
}

func (h *Hub) forget(handle *Handle) {
	if h.handles[handle.id] == handle {
		delete(h.handles, handle.id)
	}
}

// Count is the number of open joysticks
func (h *Hub) Count() int {
	return len(h.handles)
}

// Next returns the next pending joystick event. Open devices are read and
// the bus is rescanned when the queue is empty.
func (h *Hub) Next() (event.Event, bool) {
	if len(h.queue) == 0 {
		h.poll()
	}
	if len(h.queue) == 0 {
		return nil, false
	}
	ev := h.queue[0]
	h.queue = h.queue[1:]
	return ev, true
}

func (h *Hub) poll() {
	for _, handle := range h.handles {
		if !handle.lost {
			h.read(handle)
		}
	}

	if now := h.now(); now.Sub(h.lastScan) >= h.scanInterval {
		h.lastScan = now
		h.scan()
	}
}

// read diffs the device state against the last read
func (h *Hub) read(handle *Handle) {
	state, err := handle.dev.Read()
	if err != nil {
		handle.lost = true
		delete(h.present, handle.id)
		logger.WithComponent("input").Info().
			Err(err).
			Int("device", handle.id).
			Msg("Joystick disconnected")
		h.queue = append(h.queue, event.JoystickDetach{Device: handle.id})
		return
	}

	for axis, v := range state.AxisData {
		if axis < len(handle.axes) && handle.axes[axis] == v {
			continue
		}
		h.queue = append(h.queue, event.JoystickAxis{Device: handle.id, Axis: axis, Value: clampAxis(v)})
	}
	handle.axes = append(handle.axes[:0], state.AxisData...)

	changed := state.Buttons ^ handle.buttons
	for b := 0; changed != 0 && b < 32; b++ {
		mask := uint32(1) << b
		if changed&mask == 0 {
			continue
		}
		changed &^= mask
		h.queue = append(h.queue, event.JoystickButton{
			Device:  handle.id,
			Button:  b,
			Pressed: state.Buttons&mask != 0,
		})
	}
	handle.buttons = state.Buttons
}

// scan probes ids that are not open to find arrivals and departures
func (h *Hub) scan() {
	for id := 0; id < h.maxDevices; id++ {
		if _, open := h.handles[id]; open {
			continue
		}

		dev, err := h.open(id)
		_, known := h.present[id]
		switch {
		case err == nil:
			name := dev.Name()
			dev.Close()
			if !known {
				h.present[id] = name
				h.queue = append(h.queue, event.JoystickAttach{Device: id, Name: name})
			}
		case known:
			delete(h.present, id)
			h.queue = append(h.queue, event.JoystickDetach{Device: id})
		}
	}
}

// Close releases every open joystick
func (h *Hub) Close() {
	for _, handle := range h.handles {
		handle.Close()
	}
}

func clampAxis(v int) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
