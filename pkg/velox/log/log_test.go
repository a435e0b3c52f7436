package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitJSONOutputWritesTimestampedLines(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	Logger.Info().Str("component", "session").Msg("opened")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Init(JSONOutput: true) did not produce valid JSON: %v", err)
	}
	if entry["message"] != "opened" {
		t.Errorf("message = %v, want %q", entry["message"], "opened")
	}
	if _, ok := entry["time"]; !ok {
		t.Error("JSON log entry missing timestamp field")
	}
}

func TestInitLevelMapping(t *testing.T) {
	cases := []struct {
		in   Level
		want zerolog.Level
	}{
		{DebugLevel, zerolog.DebugLevel},
		{InfoLevel, zerolog.InfoLevel},
		{WarnLevel, zerolog.WarnLevel},
		{ErrorLevel, zerolog.ErrorLevel},
		{Level("nonsense"), zerolog.InfoLevel},
	}
	for _, c := range cases {
		Init(Config{Level: c.in, JSONOutput: true, Output: &bytes.Buffer{}})
		if zerolog.GlobalLevel() != c.want {
			t.Errorf("Init(Level: %q) set global level %v, want %v", c.in, zerolog.GlobalLevel(), c.want)
		}
	}
}

func TestInitDefaultsOutputToStdoutWhenNil(t *testing.T) {
	// Must not panic when Output is left nil.
	Init(Config{Level: InfoLevel, JSONOutput: true})
}

func TestWithComponentTagsLogger(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	WithComponent("idalloc").Info().Msg("reserved range")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("WithComponent logger did not produce valid JSON: %v", err)
	}
	if entry["component"] != "idalloc" {
		t.Errorf("component = %v, want %q", entry["component"], "idalloc")
	}
}

func TestWithSessionTagsLogger(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	WithSession(42).Info().Msg("committed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("WithSession logger did not produce valid JSON: %v", err)
	}
	if entry["session_id"] != float64(42) {
		t.Errorf("session_id = %v, want 42", entry["session_id"])
	}
}
