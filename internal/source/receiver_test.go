package source

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bryanchriswhite/PTZView/internal/config"
	"github.com/bryanchriswhite/PTZView/internal/frame"
)

type fakeStream struct {
	mu     sync.Mutex
	closed int
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	return nil
}

type fakeOpener struct {
	mu      sync.Mutex
	streams []*fakeStream
	errcs   []chan<- error
	mailbox *Mailbox
	err     error
}

func (o *fakeOpener) open(ctx context.Context, src config.Source, mb *Mailbox, errc chan<- error) (Stream, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	s := &fakeStream{}
	o.streams = append(o.streams, s)
	o.errcs = append(o.errcs, errc)
	o.mailbox = mb
	return s, nil
}

type fakeCamera struct {
	mu     sync.Mutex
	calls  []string
	closed bool
}

func (c *fakeCamera) SendPanTiltSpeed(pan, tilt float32) { c.record("pantilt") }
func (c *fakeCamera) SendZoomSpeed(zoom float32)         { c.record("zoom") }
func (c *fakeCamera) SendPanTiltStop()                   { c.record("stop") }

func (c *fakeCamera) record(call string) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}

func (c *fakeCamera) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func newTestReceiver(op *fakeOpener, cams map[string]*fakeCamera) *Receiver {
	dial := func(src config.Source) (CommanderCloser, error) {
		if cam, ok := cams[src.FullName()]; ok {
			return cam, nil
		}
		return nil, nil
	}
	return NewReceiver(NewCatalog(testSources()),
		WithOpener(op.open),
		WithDialer(dial),
		WithStaleAfter(time.Hour),
	)
}

func TestReceiverConnectAndCount(t *testing.T) {
	op := &fakeOpener{}
	r := newTestReceiver(op, nil)
	defer r.Close()

	if r.ConnectionCount() != 0 {
		t.Fatal("count nonzero before connect")
	}
	if _, ok := r.CurrentSourceName(); ok {
		t.Fatal("source name before connect")
	}

	if err := r.Connect("STUDIO (CAM-2)"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if name, ok := r.CurrentSourceName(); !ok || name != "STUDIO (CAM-2)" {
		t.Errorf("CurrentSourceName() = %q, %v", name, ok)
	}
	if r.ConnectionCount() != 0 {
		t.Error("count nonzero before the first frame")
	}

	op.mailbox.Publish(&frame.VideoFrame{Width: 2, Height: 1, Stride: 4, Data: make([]byte, 4)})
	if r.ConnectionCount() != 1 {
		t.Error("count not 1 after a frame arrived")
	}

	f, ok := r.TryCaptureFrame()
	if !ok {
		t.Fatal("no frame captured")
	}
	r.ReleaseFrame(f)

	r.Disconnect()
	if op.streams[0].closed != 1 {
		t.Errorf("stream closed %d times, want 1", op.streams[0].closed)
	}
	if r.ConnectionCount() != 0 {
		t.Error("count nonzero after disconnect")
	}
	if _, ok := r.TryCaptureFrame(); ok {
		t.Error("frame available after disconnect")
	}
}

func TestReceiverUnknownSource(t *testing.T) {
	r := newTestReceiver(&fakeOpener{}, nil)
	defer r.Close()

	if err := r.Connect("MISSING (CAM)"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("Connect(missing) = %v, want ErrUnknownSource", err)
	}
}

func TestReceiverOpenFailure(t *testing.T) {
	r := newTestReceiver(&fakeOpener{err: errors.New("no such element")}, nil)
	defer r.Close()

	if err := r.Connect("STUDIO (CAM-2)"); err == nil {
		t.Fatal("expected open error")
	}
	if _, ok := r.CurrentSourceName(); ok {
		t.Error("source selected despite open failure")
	}
}

func TestReceiverSwitchClosesPrevious(t *testing.T) {
	cam := &fakeCamera{}
	op := &fakeOpener{}
	r := newTestReceiver(op, map[string]*fakeCamera{"STUDIO (CAM-1)": cam})
	defer r.Close()

	if err := r.Connect("STUDIO (CAM-1)"); err != nil {
		t.Fatal(err)
	}
	if !r.HasPTZ() {
		t.Fatal("camera not attached")
	}
	r.SendPanTiltSpeed(0.5, 0)
	r.SendPanTiltStop()

	if err := r.Connect("BOOTH (SLIDES)"); err != nil {
		t.Fatal(err)
	}
	if op.streams[0].closed != 1 {
		t.Error("previous stream not closed on switch")
	}
	if !cam.closed {
		t.Error("previous camera link not closed on switch")
	}
	if r.HasPTZ() {
		t.Error("slides source should have no camera")
	}

	// no camera: commands are dropped
	r.SendZoomSpeed(1)
	if len(cam.calls) != 2 || cam.calls[0] != "pantilt" || cam.calls[1] != "stop" {
		t.Errorf("camera calls = %v", cam.calls)
	}
}

func TestReceiverStreamErrorDropsConnection(t *testing.T) {
	op := &fakeOpener{}
	r := newTestReceiver(op, nil)
	defer r.Close()

	if err := r.Connect("BOOTH (SLIDES)"); err != nil {
		t.Fatal(err)
	}
	op.mailbox.Publish(&frame.VideoFrame{Width: 2, Height: 1, Stride: 4, Data: make([]byte, 4)})
	if r.ConnectionCount() != 1 {
		t.Fatal("not connected")
	}

	op.errcs[0] <- errors.New("end of stream")

	deadline := time.Now().Add(2 * time.Second)
	for r.ConnectionCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection count still 1 after stream error")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := r.CurrentSourceName(); !ok {
		t.Error("failed stream should keep its source selected")
	}
}

func TestDialPTZ(t *testing.T) {
	cam, err := DialPTZ(config.Source{Name: "x"})
	if err != nil || cam != nil {
		t.Errorf("no address: got %v, %v", cam, err)
	}

	if _, err := DialPTZ(config.Source{PTZAddress: "a:1", PTZProtocol: "ndi"}); err == nil {
		t.Error("expected error for unsupported protocol")
	}

	cam, err = DialPTZ(config.Source{PTZAddress: "127.0.0.1:1", PTZProtocol: config.PTZProtocolVISCA})
	if err != nil || cam == nil {
		t.Fatalf("visca: got %v, %v", cam, err)
	}
	cam.Close()
}
