// Package logging builds the process logger: human readable lines on stdout
// and newline-delimited JSON records in the log file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/reshetovitsme/ouedkniss-telegram-feed/internal/shared/config"
	slogmulti "github.com/samber/slog-multi"
	"github.com/samber/oops"
)

// Keys of a log file record
const (
	TimeKey    = "ts"
	LevelKey   = "level"
	MessageKey = "message"
	MetaKey    = "meta"
)

// Logger is the process logger together with its file sink
type Logger struct {
	*slog.Logger
	file *os.File
}

// New creates a logger fanning out to stdout and, when configured, to the log file
func New(cfg *config.Config) (*Logger, error) {
	level := slog.LevelInfo
	if cfg.Debug() {
		level = slog.LevelDebug
	}

	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	if cfg.LogFile == "" {
		return &Logger{Logger: slog.New(textHandler)}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
		return nil, oops.With("log_file", cfg.LogFile, "context", "failed to create log directory").Wrap(err)
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, oops.With("log_file", cfg.LogFile, "context", "failed to open log file").Wrap(err)
	}

	// Fanout sends every record to both handlers
	handler := slogmulti.Fanout(textHandler, NewFileHandler(f, slog.LevelInfo))

	return &Logger{Logger: slog.New(handler), file: f}, nil
}

// NewFileHandler writes {ts, level, message, meta} JSON records, one per line
func NewFileHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				a.Key = TimeKey
				a.Value = slog.StringValue(a.Value.Time().UTC().Format("2006-01-02T15:04:05.000Z07:00"))
			case slog.LevelKey:
				a.Key = LevelKey
				a.Value = slog.StringValue(strings.ToLower(a.Value.String()))
			case slog.MessageKey:
				a.Key = MessageKey
			}
			return a
		},
	}).WithGroup(MetaKey)
}

// Close closes the log file if there is one
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
