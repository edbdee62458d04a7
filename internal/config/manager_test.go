package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRWMutexManager_GetReturnsClone(t *testing.T) {
	cfg := Default()
	cfg.API.Character = "bob"
	m := NewManager(cfg)

	got := m.Get()
	got.API.Character = "mutated"

	if m.Get().API.Character != "bob" {
		t.Errorf("mutating Get()'s result should not affect the manager's stored config")
	}
}

func TestRWMutexManager_Set(t *testing.T) {
	m := NewManager(Default())
	updated := Default()
	updated.API.Character = "alice"
	m.Set(updated)
	if m.Get().API.Character != "alice" {
		t.Errorf("expected Set to replace the stored config")
	}
}

func TestRWMutexManager_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.yaml")
	os.WriteFile(path, []byte("api:\n  character: \"bob\"\n"), 0o644)

	m := NewManager(Default())
	if err := m.Reload(path); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if m.Get().API.Character != "bob" {
		t.Errorf("expected Reload to pick up the new character name")
	}
}

func TestRWMutexManager_ReloadFailureKeepsPrevious(t *testing.T) {
	cfg := Default()
	cfg.API.Character = "bob"
	m := NewManager(cfg)

	if err := m.Reload(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected Reload against a missing file to fail")
	}
	if m.Get().API.Character != "bob" {
		t.Errorf("a failed reload must not clobber the previous config")
	}
}

func TestRWMutexManager_ReloadEmptyPath(t *testing.T) {
	m := NewManager(Default())
	if err := m.Reload(""); err == nil {
		t.Fatal("expected Reload with an empty path to fail")
	}
}
