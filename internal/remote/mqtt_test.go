package remote

import (
	"strings"
	"testing"

	"github.com/bryanchriswhite/PTZView/internal/config"
	"github.com/bryanchriswhite/PTZView/internal/event"
)

func TestNewBridgeDefaults(t *testing.T) {
	b := NewBridge(config.MQTTConfig{Broker: "localhost:1883", TopicPrefix: "studio/monitor/"}, nil)

	if !strings.HasPrefix(b.ClientID(), "ptzview-") {
		t.Errorf("ClientID() = %q, want generated id", b.ClientID())
	}
	if other := NewBridge(config.MQTTConfig{}, nil); other.ClientID() == b.ClientID() {
		t.Error("generated client ids collide")
	}
	if b.StatusTopic() != "studio/monitor/status" {
		t.Errorf("StatusTopic() = %q", b.StatusTopic())
	}
	if b.CommandTopic() != "studio/monitor/command" {
		t.Errorf("CommandTopic() = %q", b.CommandTopic())
	}

	fixed := NewBridge(config.MQTTConfig{ClientID: "booth-1"}, nil)
	if fixed.ClientID() != "booth-1" || fixed.StatusTopic() != "ptzview/status" {
		t.Errorf("fixed bridge = %q %q", fixed.ClientID(), fixed.StatusTopic())
	}
}

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"localhost:1883", "tcp://localhost:1883"},
		{"ssl://broker:8883", "ssl://broker:8883"},
		{"ws://broker/mqtt", "ws://broker/mqtt"},
	}
	for _, tt := range tests {
		if got := brokerURL(tt.in); got != tt.want {
			t.Errorf("brokerURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHandlePayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    event.Command
		wantErr bool
	}{
		{"connect", `{"kind":"connect","source":"STUDIO (CAM-1)"}`, event.Command{Kind: event.CommandConnect, Source: "STUDIO (CAM-1)"}, false},
		{"stop", `{"kind":"stop_ptz"}`, event.Command{Kind: event.CommandStopPTZ}, false},
		{"invalid json", `{"kind":`, event.Command{}, true},
		{"unknown kind", `{"kind":"reboot"}`, event.Command{}, true},
		{"connect without source", `{"kind":"connect"}`, event.Command{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			commands := make(chan event.Event, 1)
			b := NewBridge(config.MQTTConfig{}, commands)

			err := b.handlePayload([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("handlePayload() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if len(commands) != 0 {
					t.Error("command queued on error")
				}
				return
			}
			if got := (<-commands).(event.Command); got != tt.want {
				t.Errorf("command = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHandlePayloadQueueFull(t *testing.T) {
	commands := make(chan event.Event, 1)
	b := NewBridge(config.MQTTConfig{}, commands)

	if err := b.handlePayload([]byte(`{"kind":"exit"}`)); err != nil {
		t.Fatalf("first command: %v", err)
	}
	if err := b.handlePayload([]byte(`{"kind":"exit"}`)); err == nil {
		t.Error("second command accepted on full queue")
	}
	if b.dropped != 1 {
		t.Errorf("dropped = %d, want 1", b.dropped)
	}
}

func TestPublishAndCloseWithoutBroker(t *testing.T) {
	b := NewBridge(config.MQTTConfig{}, nil)

	b.PublishStatus(event.Status{Source: "STUDIO (CAM-1)"})
	if b.published != 0 {
		t.Errorf("published = %d while disconnected", b.published)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
