package pkg

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSetLogLevel(t *testing.T) {
	saved := GetLogLevel()
	defer SetLogLevel(saved)

	tests := []struct {
		name  string
		level slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLogLevel(tt.level)
			if got := GetLogLevel(); got != tt.level {
				t.Errorf("GetLogLevel() = %v, want %v", got, tt.level)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   slog.Level
		wantOK bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"chatty", slog.LevelWarn, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLogLevel(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseLogLevel(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LogFormatJSON, slog.LevelInfo)
	logger.Debug("dropped")
	logger.Info("kept")
	if strings.Contains(buf.String(), "dropped") {
		t.Errorf("record below level emitted: %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"msg":"kept"`) {
		t.Errorf("JSON output missing message: %s", buf.String())
	}

	// nil leveler tracks SetLogLevel
	saved := GetLogLevel()
	defer SetLogLevel(saved)
	buf.Reset()
	logger = NewLogger(&buf, LogFormatText, nil)
	SetLogLevel(slog.LevelError)
	logger.Warn("quiet")
	if buf.Len() != 0 {
		t.Errorf("warn record emitted at error level: %s", buf.String())
	}
}

func TestSetLogFormat(t *testing.T) {
	saved := DefaultLogger
	defer SetLogger(saved)

	var buf bytes.Buffer
	SetLogFormat(&buf, LogFormatJSON)
	LogError(ComponentAdmin, "framed")
	if !strings.Contains(buf.String(), `"component":"admin"`) {
		t.Errorf("JSON output missing component: %s", buf.String())
	}
}

func TestLogDebugFacetGate(t *testing.T) {
	var buf bytes.Buffer
	saved := DefaultLogger
	savedFacets := DebugFacets()
	defer func() {
		SetLogger(saved)
		SetDebugFacets(savedFacets)
	}()

	SetLogger(NewLogger(&buf, LogFormatText, slog.LevelDebug))

	SetDebugFacets(FacetEvent)
	LogDebug(ComponentSRB, "srb message")
	if buf.Len() != 0 {
		t.Errorf("srb debug record emitted with facet disabled: %s", buf.String())
	}

	LogDebug(ComponentEvent, "event message", "target", 3)
	output := buf.String()
	if !strings.Contains(output, "event message") {
		t.Errorf("debug log missing message: %s", output)
	}
	if !strings.Contains(output, "component=event") {
		t.Errorf("debug log missing component: %s", output)
	}

	buf.Reset()
	SetDebugFacets(FacetAll)
	LogDebug(ComponentSRB, "srb message")
	if !strings.Contains(buf.String(), "component=srb") {
		t.Errorf("srb debug record missing with all facets: %s", buf.String())
	}
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	saved := DefaultLogger
	defer SetLogger(saved)

	SetLogger(NewLogger(&buf, LogFormatText, slog.LevelInfo))

	LogInfo(ComponentAdapter, "info message")
	LogWarn(ComponentInterrupt, "warn message")
	LogError(ComponentHAL, "error message")

	output := buf.String()
	for _, want := range []string{
		"info message", "component=adapter",
		"warn message", "component=interrupt",
		"error message", "component=hal",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("log output missing %q: %s", want, output)
		}
	}
}
