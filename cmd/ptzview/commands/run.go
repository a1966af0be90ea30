package commands

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/PTZView/internal/api"
	"github.com/bryanchriswhite/PTZView/internal/config"
	"github.com/bryanchriswhite/PTZView/internal/display"
	"github.com/bryanchriswhite/PTZView/internal/event"
	"github.com/bryanchriswhite/PTZView/internal/input"
	"github.com/bryanchriswhite/PTZView/internal/logger"
	"github.com/bryanchriswhite/PTZView/internal/menu"
	"github.com/bryanchriswhite/PTZView/internal/monitor"
	"github.com/bryanchriswhite/PTZView/internal/output"
	"github.com/bryanchriswhite/PTZView/internal/overlay"
	"github.com/bryanchriswhite/PTZView/internal/remote"
	"github.com/bryanchriswhite/PTZView/internal/render"
	"github.com/bryanchriswhite/PTZView/internal/screensaver"
	"github.com/bryanchriswhite/PTZView/internal/source"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const commandQueueSize = 16

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Open the monitor window",
	Long: `Open the monitor window and start the control loop.

Right click opens the source menu, Alt+Enter toggles fullscreen, and an
attached joystick drives the selected camera. This is also what ptzview does
when run without a subcommand.`,
	Example: `  # Open the monitor and reconnect to the last source
  ptzview run

  # Connect to a specific source on startup
  ptzview run --source "STUDIO (CAM-1)"

  # Serve the operator API on another port
  ptzview run --port 9090`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addMonitorFlags(runCmd)
}

func addMonitorFlags(cmd *cobra.Command) {
	cmd.Flags().Int("port", 0, "operator API port (default from config)")
	cmd.Flags().String("source", "", "source to connect to on startup (default is the last source)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	viper.BindPFlag("api.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("source", cmd.Flags().Lookup("source"))

	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.WithComponent("main")

	if port := viper.GetInt("api.port"); port > 0 {
		if err := configMgr.SetAPIPort(port); err != nil {
			return err
		}
	}
	cfg := configMgr.Get()
	log.Info().
		Str("config", configMgr.GetConfigPath()).
		Int("sources", len(cfg.Sources)).
		Msg("PTZView starting")

	catalog := source.NewCatalog(cfg.Sources)
	var receiverOpts []source.ReceiverOption
	if cfg.Receiver.Backend == config.ReceiverSubprocess {
		receiverOpts = append(receiverOpts, source.WithOpener(source.SubprocessOpener(cfg.Receiver.Width, cfg.Receiver.Height)))
	}
	receiver := source.NewReceiver(catalog, receiverOpts...)

	var hub *input.Hub
	if cfg.Joystick.Enabled {
		hub = input.NewHub(input.OpenDevice, cfg.Joystick.MaxDevices,
			time.Duration(cfg.Joystick.ScanInterval)*time.Millisecond)
	}

	backend, err := display.NewX11(cfg.Window, hub)
	if err != nil {
		receiver.Close()
		if hub != nil {
			hub.Close()
		}
		if errors.Is(err, display.ErrInit) {
			log.Error().Err(err).Msg("Cannot open the monitor window")
		}
		return err
	}

	compositor, err := newCompositor(cfg.Placeholder)
	if err != nil {
		log.Warn().Err(err).Msg("Placeholder image unavailable, using gradient only")
	}

	commands := make(chan event.Event, commandQueueSize)
	opts := monitor.Options{
		Title:      cfg.Window.Title,
		DeadZone:   cfg.Joystick.DeadZone,
		Commands:   commands,
		LastSource: configMgr,
	}
	if cfg.OSD.Enabled {
		opts.OSD = overlay.NewDefault()
	}
	configureMenu(&opts, cfg.Menu)
	startRemotes(&opts, cfg, configMgr, catalog, commands)

	if cfg.InhibitScreensaver {
		if inhibitor, err := screensaver.Inhibit("PTZView", "Monitoring live video"); err != nil {
			log.Warn().Err(err).Msg("Could not inhibit screensaver")
		} else {
			opts.Closers = append(opts.Closers, inhibitor)
		}
	}

	startup := viper.GetString("source")
	if startup == "" {
		startup = cfg.LastSource
	}
	if startup != "" {
		commands <- event.Command{Kind: event.CommandConnect, Source: startup}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := monitor.New(backend, receiver, catalog, compositor, opts)
	err = loop.Run(ctx)

	stats := loop.Stats()
	log.Info().
		Uint64("live_frames", stats.LiveFrames).
		Uint64("placeholder_frames", stats.PlaceholderFrames).
		Msg("PTZView stopped")
	logger.Close()
	return err
}

func rgba(c config.Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// newCompositor builds the renderer. Without a usable placeholder image a
// "NO SOURCE" badge is shown over the gradient; a load failure is reported.
func newCompositor(cfg config.PlaceholderConfig) (*render.Compositor, error) {
	var img image.Image
	var err error
	if cfg.ImagePath != "" {
		img, err = render.LoadImage(cfg.ImagePath)
	}
	if img == nil {
		img = render.Badge("NO SOURCE", 4)
	}
	anim := render.NewAnimator(rgba(cfg.ColorA), rgba(cfg.ColorB), img)
	return render.NewCompositor(anim), err
}

func configureMenu(opts *monitor.Options, cfg config.MenuConfig) {
	provider, err := menu.NewCommand(cfg.Command)
	if err != nil {
		logger.WithComponent("main").Warn().Err(err).Msg("Source menu disabled")
		return
	}
	if cfg.Mode == config.MenuModeSync {
		opts.Menu = provider
		return
	}
	opts.AsyncMenu = menu.NewAsync(provider)
}

// startRemotes starts the operator API, its preview stream and the MQTT
// bridge when enabled
func startRemotes(opts *monitor.Options, cfg *config.Config, configMgr *config.Manager, catalog *source.Catalog, commands chan<- event.Event) {
	log := logger.WithComponent("main")

	if cfg.API.Enabled {
		server := api.NewServer(configMgr, catalog, commands)

		var preview *output.MJPEGPreview
		if cfg.API.PreviewFPS > 0 {
			preview = output.NewMJPEGPreview(output.Config{FPS: cfg.API.PreviewFPS})
			server.MountPreview(preview)
		}

		if err := server.Start(cfg.API.Port); err != nil {
			log.Warn().Err(err).Msg("Operator API disabled")
		} else {
			// preview streams must end before the server can shut down
			if preview != nil && preview.Start() == nil {
				opts.Outputs = append(opts.Outputs, preview)
				opts.Closers = append(opts.Closers, preview)
			}
			opts.Sinks = append(opts.Sinks, server)
			opts.Closers = append(opts.Closers, server)
		}
	}

	if cfg.MQTT.Enabled {
		bridge := remote.NewBridge(cfg.MQTT, commands)
		if err := bridge.Connect(); err != nil {
			log.Warn().Err(fmt.Errorf("broker %s: %w", cfg.MQTT.Broker, err)).Msg("MQTT not connected yet, retrying in background")
		}
		opts.Sinks = append(opts.Sinks, bridge)
		opts.Closers = append(opts.Closers, bridge)
	}
}
