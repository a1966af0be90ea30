package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger

	// logFile is the open daily log file, if any
	logFile *os.File
)

func init() {
	// Initialize with a default logger (info level, console output)
	// Can be reconfigured later with Init()
	Logger = zerolog.New(os.Stdout).
		With().
		Timestamp().
		Caller().
		Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = Logger
}

// LogLevel represents the logging level
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// Options controls where log output goes.
type Options struct {
	Level  string
	Pretty bool
	// Quiet drops console output entirely; the log file (if any) still receives events.
	Quiet bool
	// FileDir enables a daily log file (ptzview_YYYY-MM-DD.log) in this directory.
	FileDir string
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init initializes the global logger with the specified level and console output
func Init(level string, pretty bool) {
	if err := Configure(Options{Level: level, Pretty: pretty}); err != nil {
		Logger.Warn().Err(err).Msg("Failed to configure logger")
	}
}

// Configure rebuilds the global logger from opts.
func Configure(opts Options) error {
	zerolog.SetGlobalLevel(ParseLevel(opts.Level))

	var writers []io.Writer
	if !opts.Quiet {
		if opts.Pretty {
			writers = append(writers, zerolog.ConsoleWriter{
				Out:        os.Stdout,
				TimeFormat: time.RFC3339,
				NoColor:    false,
			})
		} else {
			writers = append(writers, os.Stdout)
		}
	}

	var fileErr error
	if opts.FileDir != "" {
		f, err := openDailyFile(opts.FileDir, time.Now())
		if err != nil {
			fileErr = err
		} else {
			if logFile != nil {
				logFile.Close()
			}
			logFile = f
			writers = append(writers, f)
		}
	}

	var output io.Writer
	switch len(writers) {
	case 0:
		output = io.Discard
	case 1:
		output = writers[0]
	default:
		output = zerolog.MultiLevelWriter(writers...)
	}

	Logger = zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()

	log.Logger = Logger
	return fileErr
}

func openDailyFile(dir string, now time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	name := filepath.Join(dir, fmt.Sprintf("ptzview_%s.log", now.Format("2006-01-02")))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// Close flushes and closes the log file, if one is open.
func Close() {
	if logFile != nil {
		logFile.Sync()
		logFile.Close()
		logFile = nil
	}
}

// Get returns the global logger instance
func Get() *zerolog.Logger {
	return &Logger
}

// WithComponent returns a logger with a component field set
func WithComponent(component string) *zerolog.Logger {
	l := Logger.With().Str("component", component).Logger()
	return &l
}

// WithField adds a custom field to the logger
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Logger.With().Interface(key, value).Logger()
	return &l
}

// LogPanic records a recovered panic value with its stack. terminating reports
// whether the panic is going to end the process.
func LogPanic(component string, r interface{}, terminating bool) {
	l := WithComponent(component)
	l.Error().
		Interface("panic", r).
		Str("stack", string(debug.Stack())).
		Msg("Unhandled panic")
	if terminating {
		l.Error().Msg("Process is terminating. Fatal panic.")
	} else {
		l.Error().Msg("Process is not terminating.")
	}
}

// Recover is deferred at the top of auxiliary goroutines. A panic there is
// logged and swallowed so the control loop keeps running.
func Recover(component string) {
	if r := recover(); r != nil {
		LogPanic(component, r, false)
	}
}

// Debug logs a debug message
func Debug(msg string) {
	Logger.Debug().Msg(msg)
}

// Info logs an info message
func Info(msg string) {
	Logger.Info().Msg(msg)
}

// Warn logs a warning message
func Warn(msg string) {
	Logger.Warn().Msg(msg)
}

// Error logs an error message
func Error(msg string) {
	Logger.Error().Msg(msg)
}

// Fatal logs a fatal message and exits
func Fatal(msg string) {
	Logger.Fatal().Msg(msg)
}
