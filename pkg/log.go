package pkg

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// Component identifies a driver subsystem for log filtering.
type Component string

// Driver component identifiers.
const (
	ComponentAdapter   Component = "adapter"
	ComponentHAL       Component = "hal"
	ComponentInterrupt Component = "interrupt"
	ComponentSRB       Component = "srb"
	ComponentSCSI      Component = "scsi"
	ComponentMessages  Component = "messages"
	ComponentRescan    Component = "rescan"
	ComponentClient    Component = "client"
	ComponentEvent     Component = "event"
	ComponentAdmin     Component = "admin"
)

// componentFacets gates debug records per component. Components not listed
// fall under FacetMisc.
var componentFacets = map[Component]Facet{
	ComponentAdapter:   FacetAdapter,
	ComponentHAL:       FacetResource,
	ComponentInterrupt: FacetInterrupt,
	ComponentSRB:       FacetSRB,
	ComponentSCSI:      FacetSCSI,
	ComponentMessages:  FacetMessages,
	ComponentRescan:    FacetRescan,
	ComponentClient:    FacetClient,
	ComponentEvent:     FacetEvent,
}

func (c Component) facet() Facet {
	if f, ok := componentFacets[c]; ok {
		return f
	}
	return FacetMisc
}

// LogFormat selects the slog handler.
type LogFormat int

const (
	LogFormatText LogFormat = iota
	LogFormatJSON
)

var (
	// DefaultLogger is the logger installed at startup. Use SetLogger to
	// replace it; assigning it directly has no effect on driver output.
	DefaultLogger *slog.Logger

	logLevel  = new(slog.LevelVar)
	logActive atomic.Pointer[slog.Logger]
)

func init() {
	logLevel.Set(slog.LevelWarn)
	SetLogger(NewLogger(os.Stderr, LogFormatText, nil))
}

// SetLogLevel sets the minimum level of loggers built with a nil leveler.
func SetLogLevel(level slog.Level) { logLevel.Set(level) }

// GetLogLevel returns the shared minimum level.
func GetLogLevel() slog.Level { return logLevel.Level() }

// ParseLogLevel converts a level name (debug, info, warn, error) to a
// [slog.Level]. Unknown names yield [slog.LevelWarn] and false.
func ParseLogLevel(name string) (slog.Level, bool) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelWarn, false
	}
	return level, true
}

// SetLogger installs logger for every driver component.
func SetLogger(logger *slog.Logger) {
	DefaultLogger = logger
	logActive.Store(logger)
}

// SetLogFormat installs a logger of the given format writing to w
// (os.Stderr when nil) at the shared level.
func SetLogFormat(w io.Writer, format LogFormat) {
	if w == nil {
		w = os.Stderr
	}
	SetLogger(NewLogger(w, format, nil))
}

// NewLogger builds a logger writing to w. A nil level follows SetLogLevel.
func NewLogger(w io.Writer, format LogFormat, level slog.Leveler) *slog.Logger {
	if level == nil {
		level = logLevel
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func emit(level slog.Level, component Component, msg string, args []any) {
	l := logActive.Load()
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, msg, append([]any{"component", string(component)}, args...)...)
}

// LogDebug records msg only when the component's debug facet is enabled.
func LogDebug(component Component, msg string, args ...any) {
	if DebugEnabled(component.facet()) {
		emit(slog.LevelDebug, component, msg, args)
	}
}

func LogInfo(component Component, msg string, args ...any) {
	emit(slog.LevelInfo, component, msg, args)
}

func LogWarn(component Component, msg string, args ...any) {
	emit(slog.LevelWarn, component, msg, args)
}

func LogError(component Component, msg string, args ...any) {
	emit(slog.LevelError, component, msg, args)
}
