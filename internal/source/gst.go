package source

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bryanchriswhite/PTZView/internal/config"
	"github.com/bryanchriswhite/PTZView/internal/frame"
	"github.com/bryanchriswhite/PTZView/internal/logger"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

var gstInitOnce sync.Once

// PipelineString builds the decode pipeline for a source URL. A URL with a
// scheme goes through uridecodebin; anything else is taken as a source
// element description such as "videotestsrc is-live=true".
func PipelineString(url string) string {
	head := strings.TrimSpace(url)
	if strings.Contains(head, "://") {
		head = fmt.Sprintf("uridecodebin uri=\"%s\"", strings.ReplaceAll(head, "\"", "%22"))
	}

	return head + " ! " +
		"videoconvert ! " +
		"video/x-raw,format=UYVY ! " +
		"appsink name=sink emit-signals=false max-buffers=1 drop=true sync=false"
}

// uyvyStride is the default GStreamer row stride for UYVY
func uyvyStride(width int) int {
	return (width*frame.BytesPerPixel + 3) &^ 3
}

// gstStream is a playing pipeline feeding a mailbox
type gstStream struct {
	pipeline *gst.Pipeline
	appsink  *app.Sink
	source   string
	mailbox  *Mailbox
	errc     chan<- error

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// OpenGStreamer starts a GStreamer pipeline for src
func OpenGStreamer(ctx context.Context, src config.Source, mb *Mailbox, errc chan<- error) (Stream, error) {
	gstInitOnce.Do(func() { gst.Init(nil) })
	log := logger.WithComponent("gstreamer")

	pipelineStr := PipelineString(src.URL)
	log.Debug().Str("pipeline", pipelineStr).Msg("Creating GStreamer pipeline")

	pipeline, err := gst.NewPipelineFromString(pipelineStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	sinkElement, err := pipeline.GetElementByName("sink")
	if err != nil {
		pipeline.Unref()
		return nil, fmt.Errorf("failed to get appsink: %w", err)
	}

	s := &gstStream{
		pipeline: pipeline,
		appsink:  app.SinkFromElement(sinkElement),
		source:   src.FullName(),
		mailbox:  mb,
		errc:     errc,
		done:     make(chan struct{}),
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.Unref()
		return nil, fmt.Errorf("failed to start pipeline: %w", err)
	}

	s.wg.Add(2)
	go s.pullSamples(ctx)
	go s.watchBus(ctx)

	log.Info().Str("source", s.source).Msg("GStreamer pipeline started")
	return s, nil
}

// pullSamples moves decoded samples into the mailbox. Polling keeps CGO
// callbacks out of the picture.
func (s *gstStream) pullSamples(ctx context.Context) {
	defer s.wg.Done()
	defer logger.Recover("gstreamer")

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		default:
		}

		sample := s.appsink.TryPullSample(20 * time.Millisecond)
		if sample == nil {
			continue
		}
		if f := s.frameFromSample(sample); f != nil {
			s.mailbox.Publish(f)
		}
	}
}

// frameFromSample copies a sample into a pooled buffer so the GStreamer
// buffer can be unmapped right away
func (s *gstStream) frameFromSample(sample *gst.Sample) *frame.VideoFrame {
	buffer := sample.GetBuffer()
	if buffer == nil {
		return nil
	}

	caps := sample.GetCaps()
	if caps == nil {
		return nil
	}
	structure := caps.GetStructureAt(0)
	if structure == nil {
		return nil
	}

	width, _ := structure.GetValue("width")
	height, _ := structure.GetValue("height")
	w, ok := width.(int)
	if !ok {
		return nil
	}
	h, ok := height.(int)
	if !ok {
		return nil
	}

	mapInfo := buffer.Map(gst.MapRead)
	if mapInfo == nil {
		return nil
	}
	defer buffer.Unmap()

	data := mapInfo.Bytes()
	stride := uyvyStride(w)
	if len(data) < stride*(h-1)+w*frame.BytesPerPixel {
		logger.WithComponent("gstreamer").Debug().
			Int("size", len(data)).
			Int("width", w).
			Int("height", h).
			Msg("Dropping short sample")
		return nil
	}

	buf := s.mailbox.Buffer(len(data))
	copy(buf, data)

	return &frame.VideoFrame{
		Width:  w,
		Height: h,
		Stride: stride,
		Data:   buf,
		Format: frame.FormatUYVY,
	}
}

// watchBus reports pipeline errors and end of stream
func (s *gstStream) watchBus(ctx context.Context) {
	defer s.wg.Done()
	defer logger.Recover("gstreamer")

	log := logger.WithComponent("gstreamer")
	bus := s.pipeline.GetPipelineBus()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		default:
		}

		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			s.report(fmt.Errorf("end of stream"))
			return
		case gst.MessageError:
			gerr := msg.ParseError()
			log.Debug().Str("debug", gerr.DebugString()).Str("source", s.source).Msg("Pipeline error details")
			s.report(fmt.Errorf("pipeline error: %s", gerr.Error()))
			return
		case gst.MessageWarning:
			gerr := msg.ParseWarning()
			log.Warn().Str("warning", gerr.Error()).Str("source", s.source).Msg("Pipeline warning")
		}
	}
}

func (s *gstStream) report(err error) {
	select {
	case s.errc <- err:
	default:
	}
}

// Close stops the pipeline and waits for the polling goroutines
func (s *gstStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()

		s.pipeline.SetState(gst.StateNull)
		s.pipeline.Unref()

		logger.WithComponent("gstreamer").Info().Str("source", s.source).Msg("GStreamer pipeline stopped")
	})
	return nil
}
