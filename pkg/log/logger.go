package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
	"github.com/rs/zerolog"
)

// zerologProvider is the default LoggerProvider.
type zerologProvider struct {
	mu    sync.RWMutex
	out   io.Writer
	level Level
}

// NewZerologProvider returns a LoggerProvider whose loggers write to out.
func NewZerologProvider(out io.Writer, level Level) LoggerProvider {
	return &zerologProvider{out: out, level: level}
}

func (p *zerologProvider) GetLogger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return NewZerologLogger(p.out, p.level)
}

func (p *zerologProvider) GetLoggerWithName(name string) Logger {
	return p.GetLogger().With(ComponentKey, name)
}

func (p *zerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
}

var (
	providerMu sync.RWMutex
	provider   LoggerProvider = NewZerologProvider(os.Stderr, LevelWarn)
)

func init() {
	// pkg/errors cannot import this package, so warnings are routed here.
	scierrors.SetZerologWarnFunc(func(w error) {
		GetLogger().Warn(w.Error(), ErrorTypeKey, fmt.Sprintf("%T", w), "warning", w)
	})
}

// GetLogger returns a logger from the installed provider.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLogger()
}

// GetLoggerWithName returns a logger tagged with the given component name.
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLoggerWithName(name)
}

// SetProvider installs p and returns the previously installed provider.
func SetProvider(p LoggerProvider) LoggerProvider {
	providerMu.Lock()
	defer providerMu.Unlock()
	prev := provider
	provider = p
	return prev
}

// SetLevel changes the minimum level of the installed provider.
func SetLevel(level Level) {
	providerMu.RLock()
	defer providerMu.RUnlock()
	provider.SetLevel(level)
}

// SetupLogger installs a zerolog provider writing to stderr. When pretty is
// true output goes through zerolog.ConsoleWriter instead of JSON lines.
func SetupLogger(loglevel string, pretty bool) error {
	level, err := ParseLevel(loglevel)
	if err != nil {
		return err
	}
	var out io.Writer = os.Stderr
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	SetProvider(NewZerologProvider(out, level))
	return nil
}

// ParseLevel converts "debug", "info", "warn" or "error" into a Level.
func ParseLevel(level string) (Level, error) {
	switch level {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, scierrors.NewValidationError("log_level", "must be one of debug, info, warn, error", level)
	}
}
