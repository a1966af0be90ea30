package output

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	"github.com/bryanchriswhite/PTZView/internal/logger"
	"github.com/rs/zerolog"
)

// MJPEGPreview streams the monitor canvas as Motion JPEG over HTTP so an
// operator can see what the monitor shows from a browser. Frames are only
// copied and encoded while a client is connected, at most FPS times a second.
type MJPEGPreview struct {
	config   Config
	interval time.Duration
	log      *zerolog.Logger

	mu        sync.Mutex
	running   bool
	clients   map[chan []byte]struct{}
	latest    *image.RGBA
	pending   bool
	lastWrite time.Time
	wake      chan struct{}
	done      chan struct{}

	frameCount uint64
	startTime  time.Time
	now        func() time.Time
}

// NewMJPEGPreview creates a preview output. It encodes nothing until Start.
func NewMJPEGPreview(config Config) *MJPEGPreview {
	if config.FPS <= 0 {
		config.FPS = 10
	}
	if config.Quality <= 0 || config.Quality > 100 {
		config.Quality = 75
	}
	return &MJPEGPreview{
		config:   config,
		interval: time.Second / time.Duration(config.FPS),
		log:      logger.WithComponent("preview"),
		clients:  make(map[chan []byte]struct{}),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		now:      time.Now,
	}
}

// Start launches the encoder goroutine
func (m *MJPEGPreview) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("MJPEG preview already running")
	}
	m.running = true
	m.startTime = m.now()
	go m.encodeLoop()

	m.log.Info().Int("fps", m.config.FPS).Int("quality", m.config.Quality).Msg("MJPEG preview started")
	return nil
}

// Close stops the encoder and disconnects all clients
func (m *MJPEGPreview) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false
	close(m.done)

	for ch := range m.clients {
		close(ch)
	}
	m.clients = make(map[chan []byte]struct{})

	m.log.Info().Uint64("frames", m.frameCount).Msg("MJPEG preview stopped")
	return nil
}

// Clients is the number of connected viewers
func (m *MJPEGPreview) Clients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// WriteFrame implements FrameSink
func (m *MJPEGPreview) WriteFrame(frame *image.RGBA) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running || len(m.clients) == 0 || m.pending {
		return
	}
	now := m.now()
	if now.Sub(m.lastWrite) < m.interval {
		return
	}
	m.lastWrite = now

	if m.latest == nil || m.latest.Rect != frame.Rect {
		m.latest = image.NewRGBA(frame.Rect)
	}
	copy(m.latest.Pix, frame.Pix)
	m.pending = true

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *MJPEGPreview) encodeLoop() {
	defer logger.Recover("preview")

	buf := new(bytes.Buffer)
	for {
		select {
		case <-m.done:
			return
		case <-m.wake:
		}

		// the loop does not touch latest while pending is set
		m.mu.Lock()
		frame := m.latest
		m.mu.Unlock()

		buf.Reset()
		err := jpeg.Encode(buf, frame, &jpeg.Options{Quality: m.config.Quality})

		m.mu.Lock()
		m.pending = false
		if err != nil {
			m.mu.Unlock()
			m.log.Warn().Err(err).Msg("Failed to encode JPEG")
			continue
		}
		data := append([]byte(nil), buf.Bytes()...)
		m.frameCount++
		for ch := range m.clients {
			select {
			case ch <- data:
			default:
				// slow client, skip this frame
			}
		}
		m.mu.Unlock()
	}
}

func (m *MJPEGPreview) subscribe() (chan []byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return nil, false
	}
	ch := make(chan []byte, 2)
	m.clients[ch] = struct{}{}
	m.log.Info().Int("clients", len(m.clients)).Msg("Preview client connected")
	return ch, true
}

func (m *MJPEGPreview) unsubscribe(ch chan []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[ch]; ok {
		delete(m.clients, ch)
		close(ch)
	}
	m.log.Info().Int("clients", len(m.clients)).Msg("Preview client disconnected")
}

// ServeHTTP streams multipart JPEG frames until the client goes away
func (m *MJPEGPreview) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	frames, ok := m.subscribe()
	if !ok {
		http.Error(w, "preview not running", http.StatusServiceUnavailable)
		return
	}
	defer m.unsubscribe(frames)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("Connection", "close")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case jpegData, ok := <-frames:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpegData)); err != nil {
				return
			}
			if _, err := w.Write(jpegData); err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}
}

// Stats is a snapshot of preview activity
type Stats struct {
	Running bool          `json:"running"`
	FPS     int           `json:"fps"`
	Frames  uint64        `json:"frames"`
	Clients int           `json:"clients"`
	Uptime  time.Duration `json:"uptime_ns"`
}

// Stats returns preview statistics
func (m *MJPEGPreview) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Stats{
		Running: m.running,
		FPS:     m.config.FPS,
		Frames:  m.frameCount,
		Clients: len(m.clients),
	}
	if m.running {
		st.Uptime = m.now().Sub(m.startTime)
	}
	return st
}

var _ FrameSink = (*MJPEGPreview)(nil)
