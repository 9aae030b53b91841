package engine

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestCell_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Cell
		wantErr bool
	}{
		{"empty zero", `0`, Cell{}, false},
		{"null", `null`, Cell{}, false},
		{"vehicle", `[3, 4]`, Cell{Color: 3, Capacity: 4}, false},
		{"nonzero bare number", `5`, Cell{}, true},
		{"short pair", `[1]`, Cell{}, true},
		{"string", `"red"`, Cell{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Cell
			err := json.Unmarshal([]byte(tt.input), &c)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && c != tt.want {
				t.Errorf("Unmarshal(%s) = %+v, want %+v", tt.input, c, tt.want)
			}
		})
	}
}

func TestCell_MarshalJSON(t *testing.T) {
	data, err := json.Marshal([]Cell{{}, {Color: 2, Capacity: 3}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `[0,[2,3]]` {
		t.Errorf("Unexpected encoding %s", data)
	}
}

func TestParseLevel(t *testing.T) {
	data := []byte(`{
		"name": "json",
		"vacancy": 2,
		"initial_matrix": [[[1,2],0],[0,0]],
		"item_queue": [1,1,1]
	}`)

	level, err := ParseLevel(data)
	if err != nil {
		t.Fatalf("ParseLevel: %v", err)
	}
	if level.InitialMatrix[0][0] != (Cell{Color: 1, Capacity: 2}) {
		t.Errorf("Unexpected cell %+v", level.InitialMatrix[0][0])
	}
	if level.VisibleQueue() != DefaultQueueLen {
		t.Errorf("Expected default queue window %d, got %d", DefaultQueueLen, level.VisibleQueue())
	}

	if _, err := ParseLevel([]byte(`{"name":`)); !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("Expected ErrInvalidLevel for malformed JSON, got %v", err)
	}
}

func TestValidateLevel(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Level)
		wantErr string
	}{
		{"valid", func(*Level) {}, ""},
		{"missing name", func(l *Level) { l.Name = "" }, "name is required"},
		{"no slots", func(l *Level) { l.Vacancy = 0 }, "vacancy"},
		{"too many slots", func(l *Level) { l.Vacancy = MaxVacancy + 1 }, "vacancy"},
		{"negative queue size", func(l *Level) { l.QueueSize = -1 }, "queue_size"},
		{"empty matrix", func(l *Level) { l.InitialMatrix = nil }, "rows"},
		{"not square", func(l *Level) { l.InitialMatrix[1] = []Cell{{}} }, "square"},
		{"bad color", func(l *Level) { l.InitialMatrix[0][0].Color = 10 }, "color 10"},
		{"bad capacity", func(l *Level) { l.InitialMatrix[0][0].Capacity = 0 }, "capacity"},
		{"no vehicles", func(l *Level) { l.InitialMatrix[0][0] = Cell{} }, "at least one vehicle"},
		{"bad queue color", func(l *Level) { l.ItemQueue = []int{1, 12} }, "item_queue[1]"},
		{"skip entries allowed", func(l *Level) { l.ItemQueue = []int{0, 1, 0} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level := createTestLevel()
			tt.modify(level)
			err := ValidateLevel(level)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected valid level, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidLevel) {
				t.Errorf("Expected ErrInvalidLevel, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestDefaultLevel(t *testing.T) {
	level := DefaultLevel()
	if err := ValidateLevel(level); err != nil {
		t.Fatalf("Default level invalid: %v", err)
	}
	if !IsBalanced(level) {
		t.Errorf("Expected default level to be balanced: %+v", LevelBalance(level))
	}
}

func TestLevelBalance(t *testing.T) {
	level := createTestLevel()
	level.ItemQueue = []int{1, 0, 2}

	got := LevelBalance(level)
	if len(got) != 2 {
		t.Fatalf("Expected 2 colors, got %+v", got)
	}
	if got[0].Color != 1 || got[0].Seats != 2 || got[0].Passengers != 1 || got[0].Balanced() {
		t.Errorf("Unexpected red balance %+v", got[0])
	}
	if got[1].Color != 2 || got[1].Seats != 0 || got[1].Passengers != 1 {
		t.Errorf("Unexpected blue balance %+v", got[1])
	}
	if CountVehicles(level) != 1 || CountPassengers(level) != 2 {
		t.Errorf("Unexpected counts %d vehicles, %d passengers", CountVehicles(level), CountPassengers(level))
	}
}

func TestColorName(t *testing.T) {
	if ColorName(1) != "red" || ColorName(9) != "cyan" {
		t.Errorf("Unexpected palette: %s %s", ColorName(1), ColorName(9))
	}
	if ColorName(42) != "color-42" {
		t.Errorf("Unexpected fallback %q", ColorName(42))
	}
}
