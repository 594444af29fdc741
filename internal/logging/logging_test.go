package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetupWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter(&buf, "debug", "json")
	defer SetupWriter(&bytes.Buffer{}, "info", "console")

	logger := Component("indexer")
	logger.Debug().Str("index", "classic-emma").Msg("created")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["component"] != "indexer" {
		t.Errorf("expected component field, got %v", entry["component"])
	}
	if entry["index"] != "classic-emma" {
		t.Errorf("expected index field, got %v", entry["index"])
	}
}

func TestSetupWriter_BadLevelFallsBackToInfo(t *testing.T) {
	SetupWriter(&bytes.Buffer{}, "loud", "console")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("expected info level, got %v", zerolog.GlobalLevel())
	}
}

func TestSetupWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	SetupWriter(&buf, "warn", "json")
	defer SetupWriter(&bytes.Buffer{}, "info", "console")

	log.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered, got %q", buf.String())
	}
}
