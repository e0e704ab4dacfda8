package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
)

// Config holds the logger configuration
type Config struct {
	Level     string    // debug, info, warn or error
	Format    string    // "json" or "text"
	AddSource bool      // Whether to add source code information
	Writer    io.Writer // Custom writer for output, stderr when nil
}

// DefaultConfig returns the default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "text",
		Writer: os.Stderr,
	}
}

var (
	mu   sync.RWMutex
	root = New(DefaultConfig())
)

// ParseLevel converts a level name into a slog level
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// New creates a logger for cfg. An unknown level falls back to info.
func New(cfg Config) *slog.Logger {
	level, _ := ParseLevel(cfg.Level)

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// Init replaces the package logger
func Init(cfg Config) error {
	if _, err := ParseLevel(cfg.Level); err != nil {
		return err
	}
	if cfg.Format != "" && !strings.EqualFold(cfg.Format, "json") && !strings.EqualFold(cfg.Format, "text") {
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	l := New(cfg)

	mu.Lock()
	root = l
	mu.Unlock()
	return nil
}

// Get returns the package logger
func Get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// WithField returns a logger that adds key=value to every entry
func WithField(key string, value any) *slog.Logger {
	return Get().With(key, value)
}

// WithFields returns a logger that adds every field, in key order
func WithFields(fields map[string]any) *slog.Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return Get().With(args...)
}
