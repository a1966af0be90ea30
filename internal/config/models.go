package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bryanchriswhite/PTZView/internal/logger"
	"gopkg.in/yaml.v3"
)

// PTZ transport protocols
const (
	PTZProtocolNone  = "none"
	PTZProtocolVISCA = "visca"
)

// Menu modes
const (
	MenuModeSync  = "sync"
	MenuModeAsync = "async"
)

// Receiver backends
const (
	ReceiverGStreamer  = "gstreamer"
	ReceiverSubprocess = "subprocess"
)

// Source describes a named network video source
type Source struct {
	Name        string `json:"name" yaml:"name"`
	Computer    string `json:"computer" yaml:"computer"`
	URL         string `json:"url" yaml:"url"`
	PTZAddress  string `json:"ptz_address,omitempty" yaml:"ptz_address,omitempty"`
	PTZProtocol string `json:"ptz_protocol,omitempty" yaml:"ptz_protocol,omitempty"`
}

// FullName returns the "COMPUTER (NAME)" form used to address the source
func (s Source) FullName() string {
	if s.Computer == "" {
		return s.Name
	}
	return fmt.Sprintf("%s (%s)", s.Computer, s.Name)
}

// Color is an opaque RGB color
type Color struct {
	R uint8 `json:"r" yaml:"r"`
	G uint8 `json:"g" yaml:"g"`
	B uint8 `json:"b" yaml:"b"`
}

// WindowConfig represents the monitor window configuration
type WindowConfig struct {
	Title     string `json:"title" yaml:"title"`
	Width     int    `json:"width" yaml:"width"`
	Height    int    `json:"height" yaml:"height"`
	RefreshHz int    `json:"refresh_hz" yaml:"refresh_hz"`
}

// JoystickConfig represents joystick input configuration
type JoystickConfig struct {
	Enabled      bool  `json:"enabled" yaml:"enabled"`
	DeadZone     int16 `json:"dead_zone" yaml:"dead_zone"`
	MaxDevices   int   `json:"max_devices" yaml:"max_devices"`
	ScanInterval int   `json:"scan_interval_ms" yaml:"scan_interval_ms"`
}

// ReceiverConfig selects how streams are decoded. The subprocess backend
// scales every source to Width x Height.
type ReceiverConfig struct {
	Backend string `json:"backend" yaml:"backend"`
	Width   int    `json:"width" yaml:"width"`
	Height  int    `json:"height" yaml:"height"`
}

// MenuConfig represents the source selection menu configuration
type MenuConfig struct {
	Mode    string `json:"mode" yaml:"mode"`
	Command string `json:"command" yaml:"command"`
}

// PlaceholderConfig represents the no-source screen configuration
type PlaceholderConfig struct {
	ImagePath string `json:"image_path" yaml:"image_path"`
	ColorA    Color  `json:"color_a" yaml:"color_a"`
	ColorB    Color  `json:"color_b" yaml:"color_b"`
}

// OSDConfig represents on-screen display configuration
type OSDConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// APIConfig represents the operator HTTP API configuration
type APIConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Port    int  `json:"port" yaml:"port"`

	// PreviewFPS enables the MJPEG preview at /api/preview; 0 disables it
	PreviewFPS int `json:"preview_fps" yaml:"preview_fps"`
}

// MQTTConfig represents the MQTT bridge configuration
type MQTTConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Broker      string `json:"broker" yaml:"broker"`
	ClientID    string `json:"client_id" yaml:"client_id"`
	TopicPrefix string `json:"topic_prefix" yaml:"topic_prefix"`
}

// Config represents the application configuration
type Config struct {
	LogLevel           string            `json:"log_level" yaml:"log_level"`
	LogToFile          bool              `json:"log_to_file" yaml:"log_to_file"`
	Window             WindowConfig      `json:"window" yaml:"window"`
	Joystick           JoystickConfig    `json:"joystick" yaml:"joystick"`
	Receiver           ReceiverConfig    `json:"receiver" yaml:"receiver"`
	Menu               MenuConfig        `json:"menu" yaml:"menu"`
	Placeholder        PlaceholderConfig `json:"placeholder" yaml:"placeholder"`
	OSD                OSDConfig         `json:"osd" yaml:"osd"`
	API                APIConfig         `json:"api" yaml:"api"`
	MQTT               MQTTConfig        `json:"mqtt" yaml:"mqtt"`
	InhibitScreensaver bool              `json:"inhibit_screensaver" yaml:"inhibit_screensaver"`
	Sources            []Source          `json:"sources" yaml:"sources"`

	// LastSource is the full name of the most recently connected source
	LastSource string `json:"last_source,omitempty" yaml:"last_source,omitempty"`
}

// Manager handles configuration
type Manager struct {
	configPath string
	dataDir    string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configFile string) (*Manager, error) {
	dataDir, err := DataDir()
	if err != nil {
		return nil, err
	}

	// Use provided config file or default
	actualConfigPath := filepath.Join(dataDir, "config.yaml")
	if configFile != "" {
		actualConfigPath = configFile
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
		dataDir:    dataDir,
	}

	// Try to read config file
	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			// Config file not found, create it with defaults
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Int("sources", len(m.config.Sources)).
		Msg("Config loaded")

	return m, nil
}

// DataDir returns the directory holding config and logs. A PORTABLE or
// portable.txt marker next to the executable keeps everything beside it.
func DataDir() (string, error) {
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		for _, marker := range []string{"PORTABLE", "portable.txt"} {
			if _, err := os.Stat(filepath.Join(exeDir, marker)); err == nil {
				return filepath.Join(exeDir, "config_and_data"), nil
			}
		}
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "ptzview"), nil
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		LogLevel: "info",
		Window: WindowConfig{
			Title:     "PTZView",
			Width:     1280,
			Height:    720,
			RefreshHz: 60,
		},
		Joystick: JoystickConfig{
			Enabled:      true,
			DeadZone:     2000,
			MaxDevices:   4,
			ScanInterval: 1000,
		},
		Receiver: ReceiverConfig{
			Backend: ReceiverGStreamer,
			Width:   1280,
			Height:  720,
		},
		Menu: MenuConfig{
			Mode:    MenuModeAsync,
			Command: "rofi -dmenu -i -p Source",
		},
		Placeholder: PlaceholderConfig{
			ColorA: Color{R: 80, G: 40, B: 120},
			ColorB: Color{R: 160, G: 80, B: 200},
		},
		OSD: OSDConfig{
			Enabled: false,
		},
		API: APIConfig{
			Enabled:    true,
			Port:       8089,
			PreviewFPS: 5,
		},
		MQTT: MQTTConfig{
			Enabled:     false,
			Broker:      "localhost:1883",
			TopicPrefix: "ptzview",
		},
		InhibitScreensaver: true,
		Sources:            []Source{},
	}
}

// load reads the configuration from disk
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Sources == nil {
		cfg.Sources = []Source{}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()

	return nil
}

// Validate checks the configuration for values the monitor cannot run with
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Joystick.DeadZone < 0 {
		return fmt.Errorf("invalid joystick dead zone %d", c.Joystick.DeadZone)
	}
	switch c.Receiver.Backend {
	case "", ReceiverGStreamer:
	case ReceiverSubprocess:
		if c.Receiver.Width <= 0 || c.Receiver.Height <= 0 {
			return fmt.Errorf("subprocess receiver needs a frame size, got %dx%d", c.Receiver.Width, c.Receiver.Height)
		}
	default:
		return fmt.Errorf("invalid receiver backend %q (use %q or %q)", c.Receiver.Backend, ReceiverGStreamer, ReceiverSubprocess)
	}
	if c.API.PreviewFPS < 0 {
		return fmt.Errorf("invalid preview fps %d", c.API.PreviewFPS)
	}
	switch c.Menu.Mode {
	case MenuModeSync, MenuModeAsync:
	default:
		return fmt.Errorf("invalid menu mode %q (use %q or %q)", c.Menu.Mode, MenuModeSync, MenuModeAsync)
	}

	seen := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		if src.Name == "" || src.URL == "" {
			return fmt.Errorf("source %q: name and url are required", src.FullName())
		}
		full := src.FullName()
		if seen[full] {
			return fmt.Errorf("duplicate source %q", full)
		}
		seen[full] = true

		switch src.PTZProtocol {
		case "", PTZProtocolNone, PTZProtocolVISCA:
		default:
			return fmt.Errorf("source %q: unsupported ptz protocol %q", full, src.PTZProtocol)
		}
	}
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}

	// Return a copy to prevent external modification
	cfg := *m.config
	cfg.Sources = append([]Source(nil), m.config.Sources...)
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.config
	if cfg == nil {
		cfg = Defaults()
	}
	data, err := yaml.Marshal(cfg)
	sourceCount := len(cfg.Sources)
	m.mu.RUnlock()

	if err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Msg("Failed to marshal config")
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Int("source_count", sourceCount).
		Msg("Saving config")

	// Ensure the directory exists
	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("config_dir", configDir).
			Msg("Failed to create config directory")
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write to file
	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		logger.WithComponent("config").Error().
			Err(err).
			Str("path", m.configPath).
			Msg("Failed to write config")
		return err
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved successfully")
	return nil
}

// Update replaces the entire configuration
func (m *Manager) Update(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// SetLastSource records the most recently connected source
func (m *Manager) SetLastSource(fullName string) error {
	m.mu.Lock()
	if m.config == nil {
		m.config = Defaults()
	}
	if m.config.LastSource == fullName {
		m.mu.Unlock()
		return nil
	}
	m.config.LastSource = fullName
	m.mu.Unlock()

	return m.Save()
}

// AddSource appends a source to the catalog
func (m *Manager) AddSource(src Source) error {
	m.mu.Lock()
	if m.config == nil {
		m.config = Defaults()
	}
	for _, existing := range m.config.Sources {
		if strings.EqualFold(existing.FullName(), src.FullName()) {
			m.mu.Unlock()
			return fmt.Errorf("source %q already exists", src.FullName())
		}
	}
	next := *m.config
	next.Sources = append(append([]Source(nil), m.config.Sources...), src)
	if err := next.Validate(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.config = &next
	m.mu.Unlock()

	logger.WithComponent("config").Info().
		Str("source", src.FullName()).
		Msg("Added source")
	return m.Save()
}

// RemoveSource removes a source by its full name
func (m *Manager) RemoveSource(fullName string) error {
	m.mu.Lock()
	if m.config == nil {
		m.mu.Unlock()
		return fmt.Errorf("source %q not found", fullName)
	}
	kept := make([]Source, 0, len(m.config.Sources))
	found := false
	for _, src := range m.config.Sources {
		if src.FullName() == fullName {
			found = true
			continue
		}
		kept = append(kept, src)
	}
	if !found {
		m.mu.Unlock()
		return fmt.Errorf("source %q not found", fullName)
	}
	m.config.Sources = kept
	if m.config.LastSource == fullName {
		m.config.LastSource = ""
	}
	m.mu.Unlock()

	logger.WithComponent("config").Info().
		Str("source", fullName).
		Msg("Removed source")
	return m.Save()
}

// SetLogLevel sets the log level
func (m *Manager) SetLogLevel(level string) error {
	m.mu.Lock()
	if m.config == nil {
		m.config = Defaults()
	}
	m.config.LogLevel = level
	m.mu.Unlock()
	return m.Save()
}

// SetAPIPort sets the operator API port
func (m *Manager) SetAPIPort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port %d", port)
	}
	m.mu.Lock()
	if m.config == nil {
		m.config = Defaults()
	}
	m.config.API.Port = port
	m.mu.Unlock()
	return m.Save()
}

// GetConfigPath returns the config file path
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// GetDataDir returns the data directory (logs, portable config)
func (m *Manager) GetDataDir() string {
	return m.dataDir
}
