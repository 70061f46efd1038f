package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog/log"
)

func TestInitWritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Options{Service: "pdfx-test", Level: "info", Console: &buf}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer Close()

	log.Debug().Msg("hidden")
	log.Info().Int("pages", 3).Msg("document loaded")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %s", len(lines), buf.String())
	}
	var ev map[string]any
	if err := json.Unmarshal(lines[0], &ev); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if ev["service"] != "pdfx-test" || ev["message"] != "document loaded" || ev["pages"] != float64(3) {
		t.Errorf("log event = %v", ev)
	}
}

func TestInitBadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Options{Level: "loud", Console: &buf}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	log.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line written at fallback level: %s", buf.String())
	}
}
