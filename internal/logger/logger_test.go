package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInitJSONWithCollectionField(t *testing.T) {
	log := Init(Options{Level: "debug", Format: "json"})
	defer Init(Options{})

	var buf bytes.Buffer
	SetOutput(&buf)

	WithCollection("popoForms").Info("snapshot published")

	if log.GetLevel() != logrus.DebugLevel {
		t.Errorf("Expected debug level, got %s", log.GetLevel())
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["collection"] != "popoForms" {
		t.Errorf("Expected collection field, got %v", entry["collection"])
	}
}

func TestInitInvalidLevelFallsBackToInfo(t *testing.T) {
	log := Init(Options{Level: "loud"})
	if log.GetLevel() != logrus.InfoLevel {
		t.Errorf("Expected info level, got %s", log.GetLevel())
	}
}

func TestInitWritesRotatingFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "collectionsdb.log")
	Init(Options{Level: "info", File: file})
	defer Init(Options{})

	L().Info("hello file")

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("Expected log file: %v", err)
	}
	if !bytes.Contains(data, []byte("hello file")) {
		t.Errorf("Expected message in log file, got %q", data)
	}
}
