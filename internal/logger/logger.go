package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Global logger instance
var (
	Log zerolog.Logger
)

// Initialize sets up the global logger with configuration
func Initialize(level string, pretty bool) {
	// Parse log level
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	// Configure output format
	if pretty {
		// Pretty console output for development
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	// Set global logger
	Log = log.With().
		Str("service", "canvas-collab").
		Logger()

	Log.Info().
		Str("level", logLevel.String()).
		Bool("pretty", pretty).
		Msg("Logger initialized")
}

// GetLogger returns the global logger instance
func GetLogger() *zerolog.Logger {
	return &Log
}

// ESS creates a logger for ephemeral state store events
func ESS() *zerolog.Logger {
	l := Log.With().Str("component", "ess").Logger()
	return &l
}

// DSS creates a logger for durable session store events
func DSS() *zerolog.Logger {
	l := Log.With().Str("component", "dss").Logger()
	return &l
}

// Collab creates a logger for collaboration service events
func Collab() *zerolog.Logger {
	l := Log.With().Str("component", "collab").Logger()
	return &l
}

// Gateway creates a logger for event bus gateway events
func Gateway() *zerolog.Logger {
	l := Log.With().Str("component", "gateway").Logger()
	return &l
}

// Activity creates a logger for activity service events
func Activity() *zerolog.Logger {
	l := Log.With().Str("component", "activity").Logger()
	return &l
}

// HTTP creates a logger for HTTP request events
func HTTP() *zerolog.Logger {
	l := Log.With().Str("component", "http").Logger()
	return &l
}

// Scheduler creates a logger for periodic job events
func Scheduler() *zerolog.Logger {
	l := Log.With().Str("component", "scheduler").Logger()
	return &l
}
