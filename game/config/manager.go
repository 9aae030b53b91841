package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/parkingjam/game/engine"
	"github.com/wricardo/parkingjam/game/service"
)

var (
	ErrLevelNotFound = service.ErrLevelNotFound
	ErrInvalidLevel  = engine.ErrInvalidLevel
)

// DefaultLevelID is preferred as the default level when present on disk.
const DefaultLevelID = "starter"

// levelExtensions lists the supported file formats in lookup order.
var levelExtensions = []string{".json", ".hcl"}

// Manager handles level loading and caching
type Manager struct {
	levelDir     string
	defaultLevel *engine.Level
	levels       map[string]*engine.Level
	mu           sync.RWMutex
}

// NewManager creates a new level manager
func NewManager(levelDir string) (*Manager, error) {
	if _, err := os.Stat(levelDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("level directory does not exist: %s", levelDir)
	}

	m := &Manager{
		levelDir: levelDir,
		levels:   make(map[string]*engine.Level),
	}
	m.loadDefaultLevel()
	return m, nil
}

// LoadLevelFile reads and validates a level file, picking the decoder from
// the file extension.
func LoadLevelFile(path string) (*engine.Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var level *engine.Level
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		level, err = ParseLevelHCL(data, path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
		}
		if err := engine.ValidateLevel(level); err != nil {
			return nil, err
		}
	default:
		level, err = engine.ParseLevel(data)
		if err != nil {
			return nil, err
		}
	}
	return level, nil
}

// LoadLevel loads a level by ID. The ID may carry a file extension.
func (m *Manager) LoadLevel(name string) (*engine.Level, error) {
	id := levelID(name)

	m.mu.RLock()
	if level, exists := m.levels[id]; exists {
		m.mu.RUnlock()
		return level, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if level, exists := m.levels[id]; exists {
		return level, nil
	}

	path, err := m.resolve(name)
	if err != nil {
		return nil, err
	}
	level, err := LoadLevelFile(path)
	if err != nil {
		return nil, fmt.Errorf("level %q: %w", id, err)
	}

	m.levels[id] = level
	return level, nil
}

// resolve finds the file backing a level name.
func (m *Manager) resolve(name string) (string, error) {
	if ext := filepath.Ext(name); isLevelExt(ext) {
		path := filepath.Join(m.levelDir, name)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("level %q: %w", name, ErrLevelNotFound)
		}
		return path, nil
	}
	for _, ext := range levelExtensions {
		path := filepath.Join(m.levelDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("level %q: %w", name, ErrLevelNotFound)
}

// ListLevels returns information about all loadable levels, sorted by ID.
// Files that fail to load are skipped.
func (m *Manager) ListLevels() ([]*service.LevelInfo, error) {
	entries, err := os.ReadDir(m.levelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read level directory: %w", err)
	}

	levels := []*service.LevelInfo{}
	seen := map[string]bool{}
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || !isLevelExt(ext) {
			continue
		}
		id := levelID(entry.Name())
		if seen[id] {
			continue
		}

		level, err := m.LoadLevel(entry.Name())
		if err != nil {
			continue
		}
		seen[id] = true

		levels = append(levels, &service.LevelInfo{
			Filename:    entry.Name(),
			LevelID:     id,
			Name:        level.Name,
			Description: level.Description,
			Format:      strings.TrimPrefix(strings.ToLower(ext), "."),
			GridSize:    len(level.InitialMatrix),
			Vacancy:     level.Vacancy,
			Vehicles:    engine.CountVehicles(level),
			Passengers:  engine.CountPassengers(level),
			Balanced:    engine.IsBalanced(level),
		})
	}

	sort.Slice(levels, func(i, j int) bool { return levels[i].LevelID < levels[j].LevelID })
	return levels, nil
}

// GetDefault returns the default level
func (m *Manager) GetDefault() *engine.Level {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultLevel
}

// SetDefault sets the default level by ID
func (m *Manager) SetDefault(name string) error {
	level, err := m.LoadLevel(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultLevel = level
	return nil
}

// RefreshCache drops cached levels and reloads the default from disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.levels = make(map[string]*engine.Level)
	m.mu.Unlock()

	m.loadDefaultLevel()
}

// loadDefaultLevel prefers DefaultLevelID, then the first listed level,
// then the built-in level.
func (m *Manager) loadDefaultLevel() {
	level, err := m.LoadLevel(DefaultLevelID)
	if err != nil {
		level = engine.DefaultLevel()
		if infos, listErr := m.ListLevels(); listErr == nil && len(infos) > 0 {
			if first, loadErr := m.LoadLevel(infos[0].Filename); loadErr == nil {
				level = first
			}
		}
	}

	m.mu.Lock()
	m.defaultLevel = level
	m.mu.Unlock()
}

// SaveLevel validates a level and writes it as JSON
func (m *Manager) SaveLevel(name string, level *engine.Level) error {
	if err := engine.ValidateLevel(level); err != nil {
		return err
	}

	id := levelID(name)
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: invalid level id %q", ErrInvalidLevel, name)
	}

	data, err := json.MarshalIndent(level, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal level: %w", err)
	}

	path := filepath.Join(m.levelDir, id+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write level file: %w", err)
	}

	m.mu.Lock()
	m.levels[id] = level
	m.mu.Unlock()

	return nil
}

func levelID(name string) string {
	if ext := filepath.Ext(name); isLevelExt(ext) {
		return strings.TrimSuffix(name, ext)
	}
	return name
}

func isLevelExt(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range levelExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
