package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/bryanchriswhite/PTZView/internal/config"
	"github.com/bryanchriswhite/PTZView/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "ptzview",
		Short: "PTZView - Live video monitor with joystick camera control",
		Long: `PTZView shows a live network video source in a window, letterboxed to
the window size, and steers PTZ cameras with a joystick.

Features:
  • Source menu on right click, grouped by computer
  • Animated placeholder while no source is connected
  • Joystick pan/tilt/zoom over VISCA
  • Alt+Enter fullscreen
  • REST API, status websocket and MQTT bridge for remote operation
  • Persistent configuration`,
		SilenceUsage: true,
		RunE:         runMonitor,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/ptzview/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("debug", false, "shorthand for --log-level debug")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress console logging")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))

	addMonitorFlags(rootCmd)
}

func initConfig() {
	viper.SetEnvPrefix("PTZVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig opens the configuration and configures logging from it and the
// global flags. --debug wins over --log-level, which wins over the file.
func loadConfig() (*config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := configMgr.Get()

	level := cfg.LogLevel
	if l := viper.GetString("log_level"); l != "" {
		level = l
	}
	if viper.GetBool("debug") {
		level = string(logger.DebugLevel)
	}

	opts := logger.Options{
		Level:  level,
		Pretty: true,
		Quiet:  viper.GetBool("quiet"),
	}
	if cfg.LogToFile {
		opts.FileDir = configMgr.GetDataDir()
	}
	if err := logger.Configure(opts); err != nil {
		logger.WithComponent("main").Warn().Err(err).Msg("Log file unavailable, logging to console only")
	}
	return configMgr, nil
}
