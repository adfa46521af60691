package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options selects level and format of every logger created afterwards.
type Options struct {
	Level  string    // debug, info, warn or error
	Format string    // console or json
	Out    io.Writer // defaults to stdout
}

var (
	mu      sync.RWMutex
	options Options
)

// Configure sets the global level and output format.
func Configure(o Options) error {
	lvl := zerolog.InfoLevel
	if o.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(o.Level))
		if err != nil {
			return fmt.Errorf("log level %q: %w", o.Level, err)
		}
		lvl = parsed
	}
	switch strings.ToLower(o.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", o.Format)
	}
	zerolog.SetGlobalLevel(lvl)
	mu.Lock()
	options = o
	mu.Unlock()
	return nil
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger. Console output is used when the
// configured format is "console" or APP_ENV is "dev". All logs include the
// provided component field.
func NewZerologLogger(component string) Logger {
	mu.RLock()
	o := options
	mu.RUnlock()

	out := o.Out
	if out == nil {
		out = os.Stdout
	}
	console := strings.EqualFold(o.Format, "console") ||
		(o.Format == "" && strings.ToLower(os.Getenv("APP_ENV")) == "dev")
	if console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	z := zerolog.New(out).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	ev := l.log.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Infow(msg string, fields map[string]any) {
	ev := l.log.Info()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
