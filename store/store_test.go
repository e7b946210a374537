package store

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMemory_SetGetDelete(t *testing.T) {
	m := NewMemory()

	if _, ok := m.Get("accessToken"); ok {
		t.Error("Get on empty store should report absent")
	}

	if err := m.Set("accessToken", "tok"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	v, ok := m.Get("accessToken")
	if !ok || v != "tok" {
		t.Errorf("Get() = %q, %v; want %q, true", v, ok, "tok")
	}

	if err := m.Delete("accessToken"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, ok := m.Get("accessToken"); ok {
		t.Error("Get after Delete should report absent")
	}
}

func TestMemory_DeleteAbsentKey(t *testing.T) {
	m := NewMemory()
	if err := m.Delete("never-set"); err != nil {
		t.Errorf("Delete() of absent key error: %v", err)
	}
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	fs, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error: %v", err)
	}
	if err := fs.Set("refreshToken", "r1"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := fs.Set("user", `{"id":"1"}`); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() reopen error: %v", err)
	}
	if v, ok := reopened.Get("refreshToken"); !ok || v != "r1" {
		t.Errorf("Get(refreshToken) = %q, %v; want %q, true", v, ok, "r1")
	}
	if v, ok := reopened.Get("user"); !ok || v != `{"id":"1"}` {
		t.Errorf("Get(user) = %q, %v", v, ok)
	}
}

func TestFileStore_DeleteIsDurable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	fs, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error: %v", err)
	}
	if err := fs.Set("accessToken", "a"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := fs.Delete("accessToken"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() reopen error: %v", err)
	}
	if _, ok := reopened.Get("accessToken"); ok {
		t.Error("deleted key should not survive reopen")
	}
}

func TestFileStore_RejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(path); err == nil {
		t.Error("OpenFile() should fail on corrupt state file")
	}
}
