package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

// bufLogger builds a Logger that writes JSON lines into buf instead of the
// global stderr logger, so tests can assert on the emitted fields.
func bufLogger(buf *bytes.Buffer) *Logger {
	return &Logger{z: zerolog.New(buf)}
}

func logLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("log output is not a JSON object: %v (%q)", err, buf.String())
	}
	return m
}

func TestSetupLevels(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"DEBUG", zerolog.DebugLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"garbage", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		Setup(tt.level, "console")
		if Log == nil {
			t.Fatalf("Setup(%q) left Log nil", tt.level)
		}
		if got := zerolog.GlobalLevel(); got != tt.want {
			t.Errorf("Setup(%q): global level %v, want %v", tt.level, got, tt.want)
		}
	}

	Setup("info", "json")
	if Log == nil {
		t.Fatal("Setup with json format left Log nil")
	}
}

func TestWithComponentField(t *testing.T) {
	var buf bytes.Buffer
	l := bufLogger(&buf).With("harness")

	l.Info("case complete", "case", "basic_case", "trials", 1000)

	m := logLine(t, &buf)
	if m["component"] != "harness" {
		t.Errorf("component = %v, want harness", m["component"])
	}
	if m["case"] != "basic_case" {
		t.Errorf("case = %v, want basic_case", m["case"])
	}
	if m["trials"] != float64(1000) {
		t.Errorf("trials = %v, want 1000", m["trials"])
	}
	if m["message"] != "case complete" {
		t.Errorf("message = %v, want \"case complete\"", m["message"])
	}
}

func TestWithLeavesParentUntouched(t *testing.T) {
	var buf bytes.Buffer
	parent := bufLogger(&buf)
	parent.With("flight")

	parent.Info("request served")

	m := logLine(t, &buf)
	if _, ok := m["component"]; ok {
		t.Error("parent logger picked up the child's component field")
	}
}

func TestLevelMethods(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	tests := []struct {
		level string
		log   func(*Logger, string, ...interface{})
	}{
		{"debug", (*Logger).Debug},
		{"info", (*Logger).Info},
		{"warn", (*Logger).Warn},
		{"error", (*Logger).Error},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		l := bufLogger(&buf).With("sampler")
		tt.log(l, "draw complete", "op", "next")

		m := logLine(t, &buf)
		if m["level"] != tt.level {
			t.Errorf("%s: level field %v, want %s", tt.level, m["level"], tt.level)
		}
		if m["op"] != "next" {
			t.Errorf("%s: op field %v, want next", tt.level, m["op"])
		}
	}
}

func TestGlobalLevelFilters(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	l := bufLogger(&buf).With("monitoring")

	l.Info("alert")
	if buf.Len() != 0 {
		t.Errorf("info line emitted at error level: %q", buf.String())
	}

	l.Error("alert", "component", "sampler")
	m := logLine(t, &buf)
	if m["level"] != "error" {
		t.Errorf("level = %v, want error", m["level"])
	}
}

func TestOddArgsDropTrailingKey(t *testing.T) {
	var buf bytes.Buffer
	l := bufLogger(&buf)

	l.Info("case complete", "case", "small_vocab", "orphan")

	m := logLine(t, &buf)
	if m["case"] != "small_vocab" {
		t.Errorf("case = %v, want small_vocab", m["case"])
	}
	if _, ok := m["orphan"]; ok {
		t.Error("trailing key without a value was emitted")
	}
}

func TestNonStringKeyStringified(t *testing.T) {
	var buf bytes.Buffer
	l := bufLogger(&buf)

	l.Info("draw", 42, "accepted", "elapsed", nil)

	m := logLine(t, &buf)
	if m["42"] != "accepted" {
		t.Errorf("non-string key not stringified: %v", m)
	}
	if v, ok := m["elapsed"]; !ok || v != nil {
		t.Errorf("nil value not carried: %v (%v)", v, ok)
	}
}
