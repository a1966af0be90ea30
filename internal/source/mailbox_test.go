package source

import (
	"testing"
	"time"

	"github.com/bryanchriswhite/PTZView/internal/frame"
)

func newFrame(mb *Mailbox, fill byte) *frame.VideoFrame {
	buf := mb.Buffer(8)
	for i := range buf {
		buf[i] = fill
	}
	return &frame.VideoFrame{Width: 2, Height: 2, Stride: 4, Data: buf}
}

func TestMailboxKeepsLatest(t *testing.T) {
	mb := NewMailbox()

	if _, ok := mb.Capture(); ok {
		t.Fatal("capture from empty mailbox")
	}

	mb.Publish(newFrame(mb, 1))
	mb.Publish(newFrame(mb, 2))

	f, ok := mb.Capture()
	if !ok || f.Data[0] != 2 {
		t.Fatalf("Capture() = %v, %v; want newest frame", f, ok)
	}
	mb.Release(f)

	// repeated until a newer one arrives
	again, ok := mb.Capture()
	if !ok || again != f {
		t.Error("latest frame not repeated")
	}
	mb.Release(again)
}

func TestMailboxSupersededWhileLent(t *testing.T) {
	mb := NewMailbox()
	mb.Publish(newFrame(mb, 1))

	lent, _ := mb.Capture()
	if _, ok := mb.Capture(); ok {
		t.Error("second capture allowed before release")
	}

	mb.Publish(newFrame(mb, 2))
	if lent.Data == nil || lent.Data[0] != 1 {
		t.Fatal("lent frame modified while borrowed")
	}

	mb.Release(lent)
	if lent.Data != nil {
		t.Error("superseded frame not recycled on release")
	}

	f, ok := mb.Capture()
	if !ok || f.Data[0] != 2 {
		t.Error("newest frame lost")
	}
}

func TestMailboxSinceAndReset(t *testing.T) {
	now := time.Unix(1000, 0)
	mb := NewMailbox()
	mb.now = func() time.Time { return now }

	if _, ok := mb.Since(); ok {
		t.Error("Since() ok before any publish")
	}

	mb.Publish(newFrame(mb, 1))
	now = now.Add(1500 * time.Millisecond)
	if d, ok := mb.Since(); !ok || d != 1500*time.Millisecond {
		t.Errorf("Since() = %v, %v", d, ok)
	}

	mb.Reset()
	if _, ok := mb.Capture(); ok {
		t.Error("frame survived Reset")
	}
	if _, ok := mb.Since(); ok {
		t.Error("Since() ok after Reset")
	}
}
