package selection

import (
	"os"
	"path/filepath"
	"testing"
)

// TestSaveAndLoad tests saving and restoring a selection
func TestSaveAndLoad(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), DefaultFile))
	known := []string{"Les ZAMIS", "Les ZAMIS 2", "Les ZAMIS (test)"}

	for _, name := range known {
		t.Run(name, func(t *testing.T) {
			if err := store.Save(name); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			got, ok, err := store.Load(known)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !ok || got != name {
				t.Errorf("Load() = %q, %v, want %q, true", got, ok, name)
			}
		})
	}
}

// TestLoad_MissingFile tests that an absent file yields nothing
func TestLoad_MissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), DefaultFile))

	got, ok, err := store.Load([]string{"Les ZAMIS"})
	if err != nil {
		t.Errorf("Load() error = %v, want nil", err)
	}
	if ok || got != "" {
		t.Errorf("Load() = %q, %v, want nothing", got, ok)
	}
}

// TestLoad_StaleName tests that a name no longer discovered is ignored
func TestLoad_StaleName(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), DefaultFile))
	if err := store.Save("Deleted Instance"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, ok, err := store.Load([]string{"Les ZAMIS"})
	if err != nil {
		t.Errorf("Load() error = %v", err)
	}
	if ok || got != "" {
		t.Errorf("Load() = %q, %v, want nothing", got, ok)
	}
}

// TestLoad_TrimsWhitespace tests that hand-edited files still restore
func TestLoad_TrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte("  Les ZAMIS \r\n"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	got, ok, _ := NewStore(path).Load([]string{"Les ZAMIS"})
	if !ok || got != "Les ZAMIS" {
		t.Errorf("Load() = %q, %v, want %q", got, ok, "Les ZAMIS")
	}
}

// TestSave_Overwrites tests that a new selection replaces the old one
func TestSave_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	store := NewStore(path)

	_ = store.Save("a much longer instance name")
	if err := store.Save("B"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if string(data) != "B\n" {
		t.Errorf("file content = %q, want %q", string(data), "B\n")
	}
}

// TestLoad_Unreadable tests that read failures are returned, not panicked
func TestLoad_Unreadable(t *testing.T) {
	// A directory in place of the file cannot be read as text
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	got, ok, err := NewStore(path).Load([]string{"Les ZAMIS"})
	if err == nil {
		t.Error("Load() expected error for unreadable file")
	}
	if ok || got != "" {
		t.Errorf("Load() = %q, %v, want nothing", got, ok)
	}
}

// TestSave_Failure tests that write failures surface to the caller
func TestSave_Failure(t *testing.T) {
	dir := t.TempDir()
	// The store path sits under a regular file, so the directory cannot be created
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if err := NewStore(filepath.Join(blocker, DefaultFile)).Save("A"); err == nil {
		t.Error("Save() expected error, got nil")
	}
}
