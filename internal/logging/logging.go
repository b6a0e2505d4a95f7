// Package logging configures the process logger. The terminal belongs to the
// UI, so records go to a file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects the level and destination.
type Config struct {
	Level string
	Debug bool
	// Path is the log file. Empty discards all records.
	Path string
}

// Init builds the logger and installs it as the zerolog global. The returned
// closer releases the log file.
func Init(cfg Config) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	} else if lvl := strings.TrimSpace(cfg.Level); lvl != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(lvl))
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	var (
		out    io.Writer = io.Discard
		closer io.Closer = nopCloser{}
	)
	if path := strings.TrimSpace(cfg.Path); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("create log dir: %w", err)
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("open log file: %w", err)
		}
		out, closer = file, file
	}

	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	log.Logger = logger
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
