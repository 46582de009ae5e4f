// Package logger provides the zerolog implementation of core/logger.Logger.
package logger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	corelogger "github.com/kilianp07/autoshutdown/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// New returns a Logger tagged with component. The output format follows the
// APP_ENV variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}

// SetLevel sets the global log level. An empty level keeps info.
func SetLevel(level string) error {
	if strings.TrimSpace(level) == "" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}
