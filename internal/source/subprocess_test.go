package source

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/bryanchriswhite/PTZView/internal/config"
)

func TestSubprocessPipeline(t *testing.T) {
	got := SubprocessPipeline("rtsp://10.0.0.5/stream1", 640, 360)
	want := `uridecodebin uri="rtsp://10.0.0.5/stream1" ! videoconvert ! videoscale ! ` +
		`video/x-raw,format=UYVY,width=640,height=360 ! fdsink fd=1 sync=false`
	if got != want {
		t.Errorf("SubprocessPipeline() =\n%s\nwant\n%s", got, want)
	}

	if got := SubprocessPipeline("videotestsrc is-live=true", 4, 2); !strings.HasPrefix(got, "videotestsrc is-live=true ! ") {
		t.Errorf("element description not kept: %s", got)
	}
}

func TestSubprocessReadFrames(t *testing.T) {
	mb := NewMailbox()
	s := &subprocessStream{width: 4, height: 2, mailbox: mb}

	// two whole frames and a partial third
	data := make([]byte, s.frameSize()*2+5)
	for i := range data {
		data[i] = byte(i / s.frameSize())
	}

	err := s.readFrames(bytes.NewReader(data))
	if err == nil || !strings.Contains(err.Error(), "end of stream") {
		t.Fatalf("readFrames() error = %v, want end of stream", err)
	}

	f, ok := mb.Capture()
	if !ok {
		t.Fatal("no frame published")
	}
	defer mb.Release(f)

	if f.Width != 4 || f.Height != 2 || f.Stride != 8 || len(f.Data) != 16 {
		t.Errorf("frame = %dx%d stride %d len %d", f.Width, f.Height, f.Stride, len(f.Data))
	}
	if err := f.Valid(); err != nil {
		t.Errorf("Valid() = %v", err)
	}
	if f.Data[0] != 1 {
		t.Errorf("latest frame starts with %d, want the second frame", f.Data[0])
	}
}

func TestSubprocessOpenerRejectsBadSize(t *testing.T) {
	open := SubprocessOpener(1, 0)
	if _, err := open(context.Background(), config.Source{Name: "BARS", URL: "videotestsrc"}, NewMailbox(), nil); err == nil {
		t.Error("opener accepted a zero frame size")
	}
}
