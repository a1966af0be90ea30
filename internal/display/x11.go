package display

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/PTZView/internal/config"
	"github.com/bryanchriswhite/PTZView/internal/event"
	"github.com/bryanchriswhite/PTZView/internal/input"
	"github.com/bryanchriswhite/PTZView/internal/logger"
)

// keysyms the monitor reacts to
const (
	keysymReturn  xproto.Keysym = 0xff0d
	keysymKPEnter xproto.Keysym = 0xff8d
)

// putImageHeader is the PutImage request size without pixel data
const putImageHeader = 24

// X11 is a Backend drawing into a plain X11 window
type X11 struct {
	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	window xproto.Window
	gc     xproto.Gcontext

	depth        byte
	bytesPerPx   int
	scanlinePad  int
	maxReqBytes  int
	frameBudget  time.Duration
	lastPresent  time.Time
	buf          []byte
	translator   translator
	joysticks    *input.Hub
	title        string
	fullscreen   bool
	width        int
	height       int
	closeOnce    sync.Once
	netWMState   xproto.Atom
	netWMFullscr xproto.Atom
}

// NewX11 opens the X display and maps the monitor window. joysticks may be
// nil when joystick input is disabled.
func NewX11(cfg config.WindowConfig, joysticks *input.Hub) (*X11, error) {
	log := logger.WithComponent("display")

	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to X server: %v", ErrInit, err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	refresh := cfg.RefreshHz
	if refresh <= 0 {
		refresh = 60
	}

	x := &X11{
		conn:        conn,
		screen:      screen,
		depth:       screen.RootDepth,
		maxReqBytes: int(setup.MaximumRequestLength) * 4,
		frameBudget: time.Second / time.Duration(refresh),
		joysticks:   joysticks,
		width:       cfg.Width,
		height:      cfg.Height,
	}

	for _, format := range setup.PixmapFormats {
		if format.Depth == x.depth {
			x.bytesPerPx = int(format.BitsPerPixel) / 8
			x.scanlinePad = int(format.ScanlinePad) / 8
			break
		}
	}
	if x.bytesPerPx != 3 && x.bytesPerPx != 4 {
		conn.Close()
		return nil, fmt.Errorf("%w: unsupported pixmap format for depth %d", ErrInit, x.depth)
	}

	if err := x.createWindow(cfg); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrInit, err)
	}

	log.Info().
		Int("width", x.width).
		Int("height", x.height).
		Int("refresh_hz", refresh).
		Uint32("window_id", uint32(x.window)).
		Msg("Monitor window created")
	return x, nil
}

func (x *X11) createWindow(cfg config.WindowConfig) error {
	log := logger.WithComponent("display")

	windowID, err := xproto.NewWindowId(x.conn)
	if err != nil {
		return fmt.Errorf("failed to create window ID: %w", err)
	}
	x.window = windowID

	mask := uint32(xproto.CwBackPixel | xproto.CwEventMask)
	values := []uint32{
		0x000000,
		xproto.EventMaskExposure |
			xproto.EventMaskStructureNotify |
			xproto.EventMaskKeyPress |
			xproto.EventMaskKeyRelease |
			xproto.EventMaskButtonPress |
			xproto.EventMaskButtonRelease,
	}

	err = xproto.CreateWindowChecked(
		x.conn,
		x.screen.RootDepth,
		x.window,
		x.screen.Root,
		0, 0,
		uint16(x.width), uint16(x.height),
		0,
		xproto.WindowClassInputOutput,
		x.screen.RootVisual,
		mask,
		values,
	).Check()
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	if err := x.SetTitle(cfg.Title); err != nil {
		log.Warn().Err(err).Msg("Failed to set window title")
	}
	if err := x.setWindowClass("ptzview", "PTZView"); err != nil {
		log.Warn().Err(err).Msg("Failed to set window class")
	}

	deleteAtom, err := x.watchDeleteWindow()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to register WM_DELETE_WINDOW; closing the window will kill the connection")
	}
	keycodes, err := x.enterKeycodes()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read keyboard mapping; Alt+Enter disabled")
	}
	x.translator = translator{window: x.window, deleteAtom: deleteAtom, enterKeys: keycodes}

	if x.netWMState, err = x.getAtom("_NET_WM_STATE"); err != nil {
		return err
	}
	if x.netWMFullscr, err = x.getAtom("_NET_WM_STATE_FULLSCREEN"); err != nil {
		return err
	}

	if err := xproto.MapWindowChecked(x.conn, x.window).Check(); err != nil {
		return fmt.Errorf("failed to map window: %w", err)
	}

	gc, err := xproto.NewGcontextId(x.conn)
	if err != nil {
		return fmt.Errorf("failed to create graphics context: %w", err)
	}
	x.gc = gc
	if err := xproto.CreateGCChecked(x.conn, x.gc, xproto.Drawable(x.window), 0, nil).Check(); err != nil {
		return fmt.Errorf("failed to create GC: %w", err)
	}

	x.conn.Sync()
	return nil
}

// watchDeleteWindow asks the window manager for a ClientMessage instead of a
// killed connection when the user closes the window
func (x *X11) watchDeleteWindow() (xproto.Atom, error) {
	protocols, err := x.getAtom("WM_PROTOCOLS")
	if err != nil {
		return 0, err
	}
	deleteWindow, err := x.getAtom("WM_DELETE_WINDOW")
	if err != nil {
		return 0, err
	}

	data := make([]byte, 4)
	xgb.Put32(data, uint32(deleteWindow))
	err = xproto.ChangePropertyChecked(
		x.conn,
		xproto.PropModeReplace,
		x.window,
		protocols,
		xproto.AtomAtom,
		32,
		1,
		data,
	).Check()
	if err != nil {
		return 0, err
	}
	return deleteWindow, nil
}

// enterKeycodes finds the keycodes producing Return or KP_Enter
func (x *X11) enterKeycodes() (map[xproto.Keycode]bool, error) {
	setup := xproto.Setup(x.conn)
	count := byte(setup.MaxKeycode - setup.MinKeycode + 1)

	reply, err := xproto.GetKeyboardMapping(x.conn, setup.MinKeycode, count).Reply()
	if err != nil {
		return nil, err
	}

	keys := make(map[xproto.Keycode]bool)
	per := int(reply.KeysymsPerKeycode)
	for i := 0; i < int(count); i++ {
		for j := 0; j < per && i*per+j < len(reply.Keysyms); j++ {
			sym := reply.Keysyms[i*per+j]
			if sym == keysymReturn || sym == keysymKPEnter {
				keys[setup.MinKeycode+xproto.Keycode(i)] = true
			}
		}
	}
	return keys, nil
}

// PollEvent drains window events first, then joystick events
func (x *X11) PollEvent() (event.Event, bool) {
	for {
		ev, xerr := x.conn.PollForEvent()
		if xerr != nil {
			logger.WithComponent("display").Debug().Str("error", xerr.Error()).Msg("X11 error")
			continue
		}
		if ev == nil {
			break
		}
		out, ok := x.translator.translate(ev)
		if !ok {
			continue
		}
		if r, isResize := out.(event.Resize); isResize {
			if r.Width == x.width && r.Height == x.height {
				continue
			}
			x.width, x.height = r.Width, r.Height
		}
		return out, true
	}

	if x.joysticks != nil {
		return x.joysticks.Next()
	}
	return nil, false
}

// Present converts img to the server's pixel layout, uploads it in chunks
// that fit the maximum request size, and paces to the refresh rate
func (x *X11) Present(img *image.RGBA) error {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil
	}

	unpadded := w * x.bytesPerPx
	pad := x.scanlinePad
	if pad <= 0 {
		pad = 1
	}
	stride := ((unpadded + pad - 1) / pad) * pad

	if cap(x.buf) < stride*h {
		x.buf = make([]byte, stride*h)
	}
	data := x.buf[:stride*h]

	for y := 0; y < h; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := data[y*stride:]
		for px := 0; px < w; px++ {
			s := src[px*4 : px*4+4]
			d := dst[px*x.bytesPerPx:]
			// BGRx, matching the usual 0xff0000/0xff00/0xff visual masks
			d[0], d[1], d[2] = s[2], s[1], s[0]
			if x.bytesPerPx == 4 {
				if x.depth == 32 {
					d[3] = s[3]
				} else {
					d[3] = 0
				}
			}
		}
	}

	rowsPerRequest := (x.maxReqBytes - putImageHeader) / stride
	if rowsPerRequest < 1 {
		return fmt.Errorf("row of %d bytes exceeds maximum request size", stride)
	}

	for y := 0; y < h; y += rowsPerRequest {
		rows := min(rowsPerRequest, h-y)
		xproto.PutImage(
			x.conn,
			xproto.ImageFormatZPixmap,
			xproto.Drawable(x.window),
			x.gc,
			uint16(w), uint16(rows),
			0, int16(y),
			0,
			x.depth,
			data[y*stride:(y+rows)*stride],
		)
	}
	x.conn.Sync()

	x.pace()
	return nil
}

// pace sleeps out the remainder of the frame budget
func (x *X11) pace() {
	now := time.Now()
	if next := x.lastPresent.Add(x.frameBudget); now.Before(next) {
		time.Sleep(next.Sub(now))
		now = next
	}
	x.lastPresent = now
}

// SetTitle sets both the EWMH and the legacy window name
func (x *X11) SetTitle(title string) error {
	x.title = title

	nameAtom, err := x.getAtom("_NET_WM_NAME")
	if err != nil {
		return err
	}
	utf8Atom, err := x.getAtom("UTF8_STRING")
	if err != nil {
		return err
	}

	if err := xproto.ChangePropertyChecked(
		x.conn,
		xproto.PropModeReplace,
		x.window,
		nameAtom,
		utf8Atom,
		8,
		uint32(len(title)),
		[]byte(title),
	).Check(); err != nil {
		return fmt.Errorf("failed to set _NET_WM_NAME: %w", err)
	}

	return xproto.ChangePropertyChecked(
		x.conn,
		xproto.PropModeReplace,
		x.window,
		xproto.AtomWmName,
		xproto.AtomString,
		8,
		uint32(len(title)),
		[]byte(title),
	).Check()
}

// Title is the last title set
func (x *X11) Title() string {
	return x.title
}

// setWindowClass sets WM_CLASS
func (x *X11) setWindowClass(instance, class string) error {
	classStr := instance + "\x00" + class + "\x00"

	return xproto.ChangePropertyChecked(
		x.conn,
		xproto.PropModeReplace,
		x.window,
		xproto.AtomWmClass,
		xproto.AtomString,
		8,
		uint32(len(classStr)),
		[]byte(classStr),
	).Check()
}

// ToggleFullscreen asks the window manager to flip _NET_WM_STATE_FULLSCREEN
func (x *X11) ToggleFullscreen() error {
	const netWMStateToggle = 2

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: x.window,
		Type:   x.netWMState,
		Data: xproto.ClientMessageDataUnionData32New([]uint32{
			netWMStateToggle,
			uint32(x.netWMFullscr),
			0,
			1,
			0,
		}),
	}

	err := xproto.SendEventChecked(
		x.conn,
		false,
		x.screen.Root,
		xproto.EventMaskSubstructureNotify|xproto.EventMaskSubstructureRedirect,
		string(ev.Bytes()),
	).Check()
	if err != nil {
		return fmt.Errorf("failed to toggle fullscreen: %w", err)
	}

	x.fullscreen = !x.fullscreen
	logger.WithComponent("display").Info().Bool("fullscreen", x.fullscreen).Msg("Toggled fullscreen")
	return nil
}

// Fullscreen reports the last requested fullscreen state
func (x *X11) Fullscreen() bool {
	return x.fullscreen
}

// Size is the window size from the last ConfigureNotify
func (x *X11) Size() (int, int) {
	return x.width, x.height
}

// OpenJoystick opens an attached joystick through the hub
func (x *X11) OpenJoystick(id int) (Joystick, error) {
	if x.joysticks == nil {
		return nil, fmt.Errorf("joystick input disabled")
	}
	h, err := x.joysticks.Open(id)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// getAtom gets an atom ID by name
func (x *X11) getAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(x.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("failed to intern %s: %w", name, err)
	}
	return reply.Atom, nil
}

// Close destroys the window and drops the X connection
func (x *X11) Close() error {
	x.closeOnce.Do(func() {
		if x.joysticks != nil {
			x.joysticks.Close()
		}
		if x.gc != 0 {
			xproto.FreeGC(x.conn, x.gc)
		}
		if x.window != 0 {
			xproto.DestroyWindow(x.conn, x.window)
			x.conn.Sync()
		}
		x.conn.Close()
		logger.WithComponent("display").Info().Msg("Monitor window closed")
	})
	return nil
}

var _ Backend = (*X11)(nil)
