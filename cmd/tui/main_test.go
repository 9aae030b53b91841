package main

import (
	"os"
	"path/filepath"
	"testing"
)

const tinyLevel = `{
  "name": "tiny",
  "vacancy": 1,
  "initial_matrix": [[[1, 1]]],
  "item_queue": [1]
}`

func TestLoadLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.json")
	if err := os.WriteFile(path, []byte(tinyLevel), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		dir      string
		level    string
		wantName string
		wantErr  bool
	}{
		{"file path", "/non/existent", path, "tiny", false},
		{"level id", dir, "tiny", "tiny", false},
		{"directory default", dir, "", "tiny", false},
		{"no directory falls back", "/non/existent", "", "starter", false},
		{"unknown id", dir, "missing", "", true},
		{"id without directory", "/non/existent", "tiny", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := loadLevel(tt.dir, tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("loadLevel error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && level.Name != tt.wantName {
				t.Errorf("Expected level %s, got %s", tt.wantName, level.Name)
			}
		})
	}
}

func TestOpenLogger(t *testing.T) {
	logger, closeLog, err := openLogger("")
	if err != nil || logger == nil {
		t.Fatalf("Expected discard logger, got %v", err)
	}
	closeLog()

	path := filepath.Join(t.TempDir(), "game.log")
	logger, closeLog, err = openLogger(path)
	if err != nil {
		t.Fatalf("openLogger failed: %v", err)
	}
	logger.Info("hello")
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("Expected log output in file")
	}
}
