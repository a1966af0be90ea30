package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/bryanchriswhite/PTZView/internal/config"
	"github.com/bryanchriswhite/PTZView/internal/frame"
	"github.com/bryanchriswhite/PTZView/internal/logger"
)

// SubprocessPipeline builds a gst-launch-1.0 pipeline that writes raw UYVY
// frames of a fixed size to stdout
func SubprocessPipeline(url string, width, height int) string {
	head := strings.TrimSpace(url)
	if strings.Contains(head, "://") {
		head = fmt.Sprintf("uridecodebin uri=\"%s\"", strings.ReplaceAll(head, "\"", "%22"))
	}

	return fmt.Sprintf("%s ! videoconvert ! videoscale ! "+
		"video/x-raw,format=UYVY,width=%d,height=%d ! "+
		"fdsink fd=1 sync=false", head, width, height)
}

// subprocessStream decodes in a gst-launch-1.0 child process. It needs no
// GStreamer bindings in this process, at the cost of a fixed output size.
type subprocessStream struct {
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	source  string
	width   int
	height  int
	mailbox *Mailbox
	errc    chan<- error

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// SubprocessOpener returns an OpenFunc that runs gst-launch-1.0 and scales
// every source to width x height. Odd widths are rounded down so rows stay
// whole macropixels.
func SubprocessOpener(width, height int) OpenFunc {
	width &^= 1
	return func(ctx context.Context, src config.Source, mb *Mailbox, errc chan<- error) (Stream, error) {
		if width <= 0 || height <= 0 {
			return nil, fmt.Errorf("invalid subprocess frame size %dx%d", width, height)
		}
		log := logger.WithComponent("gstreamer-subprocess")

		pipelineStr := SubprocessPipeline(src.URL, width, height)
		log.Debug().Str("pipeline", pipelineStr).Msg("Starting GStreamer subprocess")

		ctx, cancel := context.WithCancel(ctx)
		// sh -c so the ! separators are parsed like on a shell prompt
		cmd := exec.CommandContext(ctx, "sh", "-c", "exec gst-launch-1.0 -q "+pipelineStr)

		stdout, err := cmd.StdoutPipe()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to get stderr pipe: %w", err)
		}
		if err := cmd.Start(); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to start gst-launch: %w", err)
		}

		s := &subprocessStream{
			cmd:     cmd,
			cancel:  cancel,
			source:  src.FullName(),
			width:   width,
			height:  height,
			mailbox: mb,
			errc:    errc,
		}

		s.wg.Add(2)
		go func() {
			defer s.wg.Done()
			defer logger.Recover("gstreamer-subprocess")
			if err := s.readFrames(stdout); err != nil && ctx.Err() == nil {
				s.report(err)
			}
		}()
		go func() {
			defer s.wg.Done()
			s.logStderr(stderr)
		}()

		log.Info().
			Str("source", s.source).
			Int("pid", cmd.Process.Pid).
			Int("width", width).
			Int("height", height).
			Msg("GStreamer subprocess started")
		return s, nil
	}
}

func (s *subprocessStream) frameSize() int {
	return s.width * frame.BytesPerPixel * s.height
}

// readFrames reads whole frames from r into the mailbox until r ends
func (s *subprocessStream) readFrames(r io.Reader) error {
	size := s.frameSize()
	reader := bufio.NewReaderSize(r, size)

	for {
		buf := s.mailbox.Buffer(size)
		if _, err := io.ReadFull(reader, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("end of stream")
			}
			return fmt.Errorf("error reading frame: %w", err)
		}

		s.mailbox.Publish(&frame.VideoFrame{
			Width:  s.width,
			Height: s.height,
			Stride: s.width * frame.BytesPerPixel,
			Data:   buf,
			Format: frame.FormatUYVY,
		})
	}
}

func (s *subprocessStream) logStderr(r io.Reader) {
	log := logger.WithComponent("gstreamer-subprocess")
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		log.Warn().Str("source", s.source).Str("stderr", scanner.Text()).Msg("gst-launch")
	}
}

func (s *subprocessStream) report(err error) {
	select {
	case s.errc <- err:
	default:
	}
}

// Close kills the child process and waits for the readers
func (s *subprocessStream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.cmd.Wait()

		logger.WithComponent("gstreamer-subprocess").Info().Str("source", s.source).Msg("GStreamer subprocess stopped")
	})
	return nil
}
