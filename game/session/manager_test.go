package session

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/parkingjam/game/engine"
)

func createTestLevel() *engine.Level {
	return &engine.Level{
		Name:    "Test Level",
		Vacancy: 2,
		InitialMatrix: [][]engine.Cell{
			{{Color: 1, Capacity: 2}, {}},
			{{}, {}},
		},
		ItemQueue: []int{1, 1},
	}
}

func TestManager_Create(t *testing.T) {
	manager := NewManager()
	level := createTestLevel()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session", level, nil)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", session.ID)
		}
		if session.Engine == nil {
			t.Error("Expected engine to be initialized")
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", level, nil)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character session ID, got %q", session.ID)
		}
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		_, err := manager.Create("test-session", level, nil)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", level, nil)
		if !errors.Is(err, ErrSessionAlreadyExists) {
			t.Errorf("Expected ErrSessionAlreadyExists for case variant, got %v", err)
		}
	})

	t.Run("invalid session ID", func(t *testing.T) {
		_, err := manager.Create("bad id", level, nil)
		if !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("Expected ErrInvalidSessionID, got %v", err)
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		invalid := createTestLevel()
		invalid.Name = ""
		_, err := manager.Create("invalid-test", invalid, nil)
		if !errors.Is(err, engine.ErrInvalidLevel) {
			t.Errorf("Expected ErrInvalidLevel, got %v", err)
		}
		if _, err := manager.Get("invalid-test"); err == nil {
			t.Error("Expected failed session not to be stored")
		}
	})
}

func TestManager_CreateWithFactory(t *testing.T) {
	manager := NewManager()
	var gotID string
	factory := func(id string, level *engine.Level) (*engine.GameEngine, error) {
		gotID = id
		return engine.NewEngine(level)
	}

	session, err := manager.Create("", createTestLevel(), factory)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if gotID != session.ID {
		t.Errorf("Factory received %q, session has %q", gotID, session.ID)
	}

	failing := func(string, *engine.Level) (*engine.GameEngine, error) {
		return nil, errors.New("boom")
	}
	if _, err := manager.Create("fails", createTestLevel(), failing); err == nil {
		t.Error("Expected factory error to be returned")
	}
}

func TestManager_Get(t *testing.T) {
	manager := NewManager()
	created, _ := manager.Create("get-test", createTestLevel(), nil)

	t.Run("get existing session", func(t *testing.T) {
		session, err := manager.Get("get-test")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if session != created {
			t.Errorf("Expected the created session")
		}
	})

	t.Run("case-insensitive get", func(t *testing.T) {
		session, err := manager.Get("GET-TEST")
		if err != nil {
			t.Fatalf("Failed to get session with different case: %v", err)
		}
		if session.ID != created.ID {
			t.Errorf("Expected same session regardless of case")
		}
	})

	t.Run("get non-existent session", func(t *testing.T) {
		_, err := manager.Get("non-existent")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager()
	level := createTestLevel()
	var removed []string
	manager.OnRemove(func(id string) { removed = append(removed, id) })

	manager.Create("delete-test", level, nil)

	t.Run("delete existing session", func(t *testing.T) {
		if err := manager.Delete("delete-test"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if _, err := manager.Get("delete-test"); !errors.Is(err, ErrSessionNotFound) {
			t.Error("Expected session to be deleted")
		}
		if len(removed) != 1 || removed[0] != "delete-test" {
			t.Errorf("Expected remove hook for delete-test, got %v", removed)
		}
	})

	t.Run("delete non-existent session", func(t *testing.T) {
		if err := manager.Delete("non-existent"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
		if len(removed) != 1 {
			t.Errorf("Expected no extra hook call, got %v", removed)
		}
	})

	t.Run("case-insensitive delete", func(t *testing.T) {
		manager.Create("case-test", level, nil)
		if err := manager.Delete("CASE-TEST"); err != nil {
			t.Fatalf("Failed to delete with different case: %v", err)
		}
		if removed[len(removed)-1] != "case-test" {
			t.Errorf("Expected hook to receive the stored ID, got %q", removed[len(removed)-1])
		}
	})
}

func TestManager_List(t *testing.T) {
	manager := NewManager()
	level := createTestLevel()
	for _, id := range []string{"list-1", "list-2", "list-3"} {
		if _, err := manager.Create(id, level, nil); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	sessions := manager.List()
	if len(sessions) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(sessions))
	}
	seen := map[string]bool{}
	for _, s := range sessions {
		seen[s.ID] = true
	}
	for _, id := range []string{"list-1", "list-2", "list-3"} {
		if !seen[id] {
			t.Errorf("Session %s missing from list", id)
		}
	}
	if manager.Count() != 3 {
		t.Errorf("Expected Count 3, got %d", manager.Count())
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := NewManager()
	session, _ := manager.Create("access-test", createTestLevel(), nil)
	before := session.LastAccessedAt

	time.Sleep(5 * time.Millisecond)
	if err := manager.UpdateLastAccessed("ACCESS-TEST"); err != nil {
		t.Fatalf("UpdateLastAccessed: %v", err)
	}
	if !session.LastAccessedAt.After(before) {
		t.Error("Expected LastAccessedAt to move forward")
	}
	if err := manager.UpdateLastAccessed("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_CleanupExpiredSessions(t *testing.T) {
	manager := NewManager()
	level := createTestLevel()
	var removed []string
	manager.OnRemove(func(id string) { removed = append(removed, id) })

	old, _ := manager.Create("old", level, nil)
	manager.Create("fresh", level, nil)
	old.LastAccessedAt = time.Now().Add(-2 * time.Hour)

	count := manager.CleanupExpiredSessions(time.Hour)
	if count != 1 {
		t.Errorf("Expected 1 expired session, got %d", count)
	}
	if _, err := manager.Get("old"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Expected old session to be removed")
	}
	if _, err := manager.Get("fresh"); err != nil {
		t.Errorf("Expected fresh session to survive: %v", err)
	}
	if len(removed) != 1 || removed[0] != "old" {
		t.Errorf("Expected remove hook for old, got %v", removed)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()
	level := createTestLevel()

	var wg sync.WaitGroup
	ids := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := manager.Create("", level, nil)
			if err != nil {
				t.Errorf("Concurrent create failed: %v", err)
				return
			}
			ids <- session.ID
			if _, err := manager.Get(strings.ToUpper(session.ID)); err != nil {
				t.Errorf("Concurrent get failed: %v", err)
			}
		}()
	}
	wg.Wait()
	close(ids)

	unique := map[string]bool{}
	for id := range ids {
		if unique[id] {
			t.Errorf("Duplicate session ID generated: %s", id)
		}
		unique[id] = true
	}
	if manager.Count() != len(unique) {
		t.Errorf("Expected %d sessions, got %d", len(unique), manager.Count())
	}
}
