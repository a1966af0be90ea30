package source

import (
	"sync"
	"time"

	"github.com/bryanchriswhite/PTZView/internal/frame"
)

// Mailbox holds only the newest decoded frame. The producer overwrites it;
// the consumer borrows it with Capture and gives it back with Release. A
// frame that is superseded while borrowed is recycled on release.
type Mailbox struct {
	mu        sync.Mutex
	latest    *frame.VideoFrame
	lent      *frame.VideoFrame
	published time.Time
	pool      sync.Pool

	// now is swapped in tests
	now func() time.Time
}

// NewMailbox creates an empty mailbox
func NewMailbox() *Mailbox {
	return &Mailbox{now: time.Now}
}

// Buffer returns a byte slice of length n, reusing released frame storage
func (m *Mailbox) Buffer(n int) []byte {
	if v, ok := m.pool.Get().(*[]byte); ok && cap(*v) >= n {
		return (*v)[:n]
	}
	return make([]byte, n)
}

func (m *Mailbox) recycle(f *frame.VideoFrame) {
	if f == nil || f.Data == nil {
		return
	}
	buf := f.Data[:0]
	f.Data = nil
	m.pool.Put(&buf)
}

// Publish replaces the newest frame
func (m *Mailbox) Publish(f *frame.VideoFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.latest
	m.latest = f
	m.published = m.now()
	if old != nil && old != m.lent {
		m.recycle(old)
	}
}

// Capture lends out the newest frame. The same frame is returned again until
// a newer one is published.
func (m *Mailbox) Capture() (*frame.VideoFrame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.latest == nil || m.lent != nil {
		return nil, false
	}
	m.lent = m.latest
	return m.lent, true
}

// Release returns a frame obtained from Capture
func (m *Mailbox) Release(f *frame.VideoFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f == nil || f != m.lent {
		return
	}
	m.lent = nil
	if f != m.latest {
		m.recycle(f)
	}
}

// Since is how long ago the last frame was published; ok is false if none was
func (m *Mailbox) Since() (d time.Duration, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.published.IsZero() {
		return 0, false
	}
	return m.now().Sub(m.published), true
}

// Reset drops the newest frame, e.g. after a disconnect
func (m *Mailbox) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.latest != nil && m.latest != m.lent {
		m.recycle(m.latest)
	}
	m.latest = nil
	m.published = time.Time{}
}
