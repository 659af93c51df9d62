// Package observability carries the ambient logging and metrics concerns
// that the protocol engine deliberately stays free of: vivproto reports
// everything through manager.Delegate, never through a logger or a counter
// directly.
package observability

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger returns a console logger tagged with app, and installs it as
// the global zerolog logger.
func InitLogger(app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
