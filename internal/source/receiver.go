package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bryanchriswhite/PTZView/internal/config"
	"github.com/bryanchriswhite/PTZView/internal/frame"
	"github.com/bryanchriswhite/PTZView/internal/logger"
	"github.com/bryanchriswhite/PTZView/internal/ptz"
)

// DefaultStaleAfter is how long a stream may go without a frame before the
// connection count drops to zero
const DefaultStaleAfter = 2 * time.Second

// Stream is a running decode of one source. It publishes frames into the
// mailbox until ctx is cancelled or Close is called.
type Stream interface {
	Close() error
}

// OpenFunc starts decoding src into mb. errc receives a fatal stream error
// at most once.
type OpenFunc func(ctx context.Context, src config.Source, mb *Mailbox, errc chan<- error) (Stream, error)

// CommanderCloser is a PTZ link owned by the receiver
type CommanderCloser interface {
	ptz.Commander
	Close() error
}

// DialFunc creates the PTZ link for a source
type DialFunc func(src config.Source) (CommanderCloser, error)

// Receiver is the FrameSource used by the monitor. It runs one stream at a
// time and optionally drives the source's camera.
type Receiver struct {
	catalog    *Catalog
	mailbox    *Mailbox
	open       OpenFunc
	dial       DialFunc
	staleAfter time.Duration

	mu      sync.Mutex
	current *config.Source
	stream  Stream
	camera  CommanderCloser
	failed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// ReceiverOption configures a Receiver
type ReceiverOption func(*Receiver)

// WithOpener replaces the stream opener (GStreamer by default)
func WithOpener(open OpenFunc) ReceiverOption {
	return func(r *Receiver) { r.open = open }
}

// WithDialer replaces the PTZ dialer (VISCA over TCP by default)
func WithDialer(dial DialFunc) ReceiverOption {
	return func(r *Receiver) { r.dial = dial }
}

// WithStaleAfter sets how long without frames counts as disconnected
func WithStaleAfter(d time.Duration) ReceiverOption {
	return func(r *Receiver) { r.staleAfter = d }
}

// NewReceiver creates a receiver over catalog
func NewReceiver(catalog *Catalog, opts ...ReceiverOption) *Receiver {
	r := &Receiver{
		catalog:    catalog,
		mailbox:    NewMailbox(),
		open:       OpenGStreamer,
		dial:       DialPTZ,
		staleAfter: DefaultStaleAfter,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DialPTZ creates a VISCA client for sources that have a camera address. An
// empty protocol means VISCA.
func DialPTZ(src config.Source) (CommanderCloser, error) {
	switch src.PTZProtocol {
	case config.PTZProtocolVISCA, "":
		if src.PTZAddress == "" {
			return nil, nil
		}
		return ptz.NewViscaClient(src.PTZAddress), nil
	case config.PTZProtocolNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported PTZ protocol %q", src.PTZProtocol)
	}
}

// Connect switches to the named source. The previous stream is stopped first.
func (r *Receiver) Connect(name string) error {
	src, err := r.catalog.Lookup(name)
	if err != nil {
		return err
	}

	r.Disconnect()
	log := logger.WithComponent("source")

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	stream, err := r.open(ctx, src, r.mailbox, errc)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to open %s: %w", src.FullName(), err)
	}

	camera, err := r.dial(src)
	if err != nil {
		log.Warn().Err(err).Str("source", src.FullName()).Msg("PTZ control unavailable")
		camera = nil
	}

	r.mu.Lock()
	r.current = &src
	r.stream = stream
	r.camera = camera
	r.failed = false
	r.cancel = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go r.watch(ctx, src, errc)

	log.Info().
		Str("source", src.FullName()).
		Str("url", src.URL).
		Bool("ptz", camera != nil).
		Msg("Connected to source")
	return nil
}

// watch marks the connection failed when the stream reports an error
func (r *Receiver) watch(ctx context.Context, src config.Source, errc <-chan error) {
	defer r.wg.Done()
	defer logger.Recover("source")

	select {
	case <-ctx.Done():
	case err := <-errc:
		if err == nil {
			return
		}
		logger.WithComponent("source").Error().
			Err(err).
			Str("source", src.FullName()).
			Msg("Stream failed")
		r.mu.Lock()
		if r.current != nil && r.current.FullName() == src.FullName() {
			r.failed = true
		}
		r.mu.Unlock()
	}
}

// Disconnect stops the current stream and camera link, if any
func (r *Receiver) Disconnect() {
	r.mu.Lock()
	cancel := r.cancel
	stream := r.stream
	camera := r.camera
	current := r.current
	r.cancel, r.stream, r.camera, r.current = nil, nil, nil, nil
	r.failed = false
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stream != nil {
		if err := stream.Close(); err != nil {
			logger.WithComponent("source").Warn().Err(err).Msg("Error closing stream")
		}
	}
	r.wg.Wait()
	if camera != nil {
		camera.Close()
	}
	r.mailbox.Reset()

	if current != nil {
		logger.WithComponent("source").Info().Str("source", current.FullName()).Msg("Disconnected from source")
	}
}

// TryCaptureFrame lends the newest frame without blocking
func (r *Receiver) TryCaptureFrame() (*frame.VideoFrame, bool) {
	return r.mailbox.Capture()
}

// ReleaseFrame returns a frame from TryCaptureFrame
func (r *Receiver) ReleaseFrame(f *frame.VideoFrame) {
	r.mailbox.Release(f)
}

// ConnectionCount is 1 while a healthy stream is delivering frames
func (r *Receiver) ConnectionCount() int {
	r.mu.Lock()
	active := r.stream != nil && !r.failed
	r.mu.Unlock()
	if !active {
		return 0
	}

	since, ok := r.mailbox.Since()
	if !ok || since > r.staleAfter {
		return 0
	}
	return 1
}

// CurrentSourceName is the selected source's full name
func (r *Receiver) CurrentSourceName() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return "", false
	}
	return r.current.FullName(), true
}

// HasPTZ reports whether the current source has a camera link
func (r *Receiver) HasPTZ() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.camera != nil
}

func (r *Receiver) commander() ptz.Commander {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.camera
}

// SendPanTiltSpeed forwards to the camera; a no-op without one
func (r *Receiver) SendPanTiltSpeed(pan, tilt float32) {
	if c := r.commander(); c != nil {
		c.SendPanTiltSpeed(pan, tilt)
	}
}

// SendZoomSpeed forwards to the camera; a no-op without one
func (r *Receiver) SendZoomSpeed(zoom float32) {
	if c := r.commander(); c != nil {
		c.SendZoomSpeed(zoom)
	}
}

// SendPanTiltStop forwards to the camera; a no-op without one
func (r *Receiver) SendPanTiltStop() {
	if c := r.commander(); c != nil {
		c.SendPanTiltStop()
	}
}

// Close disconnects
func (r *Receiver) Close() error {
	r.Disconnect()
	return nil
}
