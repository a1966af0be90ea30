package ptz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"sync"
	"time"

	"github.com/bryanchriswhite/PTZView/internal/logger"
)

// VISCA framing and limits
const (
	viscaTerminator byte = 0xFF

	viscaMaxPanSpeed  byte = 0x18
	viscaMaxTiltSpeed byte = 0x14
	viscaMaxZoomSpeed byte = 0x07

	viscaDirUpLeft    byte = 0x01
	viscaDirDownRight byte = 0x02
	viscaDirStop      byte = 0x03
)

var viscaPreamble = []byte{0x81, 0x01}

// speedByte maps a magnitude in [0,1] onto 1..max
func speedByte(mag float32, max byte) byte {
	if mag <= 0 {
		return 0
	}
	if mag > 1 {
		mag = 1
	}
	s := byte(math.Round(float64(mag)*float64(max-1))) + 1
	if s > max {
		s = max
	}
	return s
}

// PanTiltCommand builds the VISCA Pan-tiltDrive packet for the given speeds.
// A zero speed on an axis stops that axis.
func PanTiltCommand(pan, tilt float32) []byte {
	panSpeed, panDir := byte(0x01), viscaDirStop
	switch {
	case pan > 0:
		panSpeed, panDir = speedByte(pan, viscaMaxPanSpeed), viscaDirUpLeft
	case pan < 0:
		panSpeed, panDir = speedByte(-pan, viscaMaxPanSpeed), viscaDirDownRight
	}

	tiltSpeed, tiltDir := byte(0x01), viscaDirStop
	switch {
	case tilt > 0:
		tiltSpeed, tiltDir = speedByte(tilt, viscaMaxTiltSpeed), viscaDirUpLeft
	case tilt < 0:
		tiltSpeed, tiltDir = speedByte(-tilt, viscaMaxTiltSpeed), viscaDirDownRight
	}

	return viscaPacket(0x06, 0x01, panSpeed, tiltSpeed, panDir, tiltDir)
}

// PanTiltStopCommand builds the VISCA Pan-tiltDrive stop packet
func PanTiltStopCommand() []byte {
	return viscaPacket(0x06, 0x01, 0x01, 0x01, viscaDirStop, viscaDirStop)
}

// ZoomCommand builds the VISCA variable zoom packet. Positive zooms tele,
// negative zooms wide, zero stops.
func ZoomCommand(zoom float32) []byte {
	switch {
	case zoom > 0:
		return viscaPacket(0x04, 0x07, 0x20|speedByte(zoom, viscaMaxZoomSpeed))
	case zoom < 0:
		return viscaPacket(0x04, 0x07, 0x30|speedByte(-zoom, viscaMaxZoomSpeed))
	default:
		return ZoomStopCommand()
	}
}

// ZoomStopCommand builds the VISCA zoom stop packet
func ZoomStopCommand() []byte {
	return viscaPacket(0x04, 0x07, 0x00)
}

func viscaPacket(payload ...byte) []byte {
	msg := make([]byte, 0, len(viscaPreamble)+len(payload)+1)
	msg = append(msg, viscaPreamble...)
	msg = append(msg, payload...)
	return append(msg, viscaTerminator)
}

// ViscaClient drives a camera over raw VISCA on TCP. Commands are handed to a
// writer goroutine through one slot per channel (pan/tilt, zoom), so the
// caller never blocks on the network and a newer command replaces an unsent
// older one.
type ViscaClient struct {
	addr        string
	dialTimeout time.Duration
	ackTimeout  time.Duration

	mu        sync.Mutex
	panTilt   []byte
	zoom      []byte
	closed    bool
	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	conn      net.Conn
}

// NewViscaClient creates a client for addr (host:port) and starts its writer
func NewViscaClient(addr string) *ViscaClient {
	c := &ViscaClient{
		addr:        addr,
		dialTimeout: 2 * time.Second,
		ackTimeout:  100 * time.Millisecond,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	go c.run()
	return c
}

// SendPanTiltSpeed implements Commander
func (c *ViscaClient) SendPanTiltSpeed(pan, tilt float32) {
	c.enqueue(&c.panTilt, PanTiltCommand(pan, tilt))
}

// SendZoomSpeed implements Commander
func (c *ViscaClient) SendZoomSpeed(zoom float32) {
	c.enqueue(&c.zoom, ZoomCommand(zoom))
}

// SendPanTiltStop implements Commander; it halts pan, tilt and zoom
func (c *ViscaClient) SendPanTiltStop() {
	c.enqueue(&c.panTilt, PanTiltStopCommand())
	c.enqueue(&c.zoom, ZoomStopCommand())
}

func (c *ViscaClient) enqueue(slot *[]byte, cmd []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	*slot = cmd
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// take removes the pending commands in pan/tilt then zoom order
func (c *ViscaClient) take() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out [][]byte
	if c.panTilt != nil {
		out = append(out, c.panTilt)
		c.panTilt = nil
	}
	if c.zoom != nil {
		out = append(out, c.zoom)
		c.zoom = nil
	}
	return out
}

func (c *ViscaClient) run() {
	defer logger.Recover("visca")
	log := logger.WithComponent("visca")

	for {
		select {
		case <-c.done:
			c.disconnect()
			return
		case <-c.wake:
		}

		for _, cmd := range c.take() {
			if err := c.write(cmd); err != nil {
				log.Warn().
					Err(err).
					Str("addr", c.addr).
					Hex("command", cmd).
					Msg("VISCA command failed")
				c.disconnect()
			}
		}
	}
}

func (c *ViscaClient) write(cmd []byte) error {
	if c.conn == nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.dialTimeout)
		defer cancel()
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", c.addr)
		if err != nil {
			return fmt.Errorf("failed to dial camera: %w", err)
		}
		c.conn = conn
		logger.WithComponent("visca").Info().Str("addr", c.addr).Msg("Connected to camera")
	}

	if _, err := c.conn.Write(cmd); err != nil {
		return fmt.Errorf("error sending VISCA command: %w", err)
	}

	return c.readAck()
}

// readAck consumes replies until an ACK/completion or the ack timeout. A
// silent camera is not an error; an explicit VISCA error reply is.
func (c *ViscaClient) readAck() error {
	buf := make([]byte, 64)
	var pending []byte
	deadline := time.Now().Add(c.ackTimeout)

	for time.Now().Before(deadline) {
		c.conn.SetReadDeadline(deadline)
		n, err := c.conn.Read(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil
			}
			return fmt.Errorf("error reading VISCA response: %w", err)
		}
		pending = append(pending, buf[:n]...)

		for {
			end := bytes.IndexByte(pending, viscaTerminator)
			if end == -1 {
				break
			}
			msg := pending[:end+1]
			pending = pending[end+1:]
			if err := checkReply(msg); err != nil {
				return err
			}
			if len(msg) >= 2 && msg[1]>>4 == 0x05 {
				return nil
			}
		}
	}
	return nil
}

// checkReply returns an error for VISCA error replies (y0 6z ... FF)
func checkReply(msg []byte) error {
	if len(msg) < 3 {
		return nil
	}
	if msg[1]>>4 == 0x06 {
		return fmt.Errorf("visca error response: %x (status byte: %#02x)", msg, msg[2])
	}
	return nil
}

func (c *ViscaClient) disconnect() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Close stops the writer. Pending commands are dropped.
func (c *ViscaClient) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.panTilt, c.zoom = nil, nil
		c.mu.Unlock()
		close(c.done)
	})
	return nil
}
