package instance

import (
	"os"
	"path/filepath"
	"testing"
)

func mkdirs(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if err := os.MkdirAll(p, 0755); err != nil {
			t.Fatalf("failed to create %s: %v", p, err)
		}
	}
}

// TestLocate tests prefix filtering and the mods folder requirement
func TestLocate(t *testing.T) {
	root := t.TempDir()
	mkdirs(t,
		filepath.Join(root, "Les ZAMIS 2", ModsDir),
		filepath.Join(root, "Les ZAMIS", ModsDir),
		filepath.Join(root, "Les ZAMIS empty"),
		filepath.Join(root, "Vanilla", ModsDir),
	)
	// A regular file with a matching name is not an instance
	if err := os.WriteFile(filepath.Join(root, "Les ZAMIS.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	got := Locate(root, "Les ZAMIS")

	want := []string{"Les ZAMIS", "Les ZAMIS 2"}
	names := Names(got)
	if len(names) != len(want) {
		t.Fatalf("Locate() names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Locate()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	if got[0].ModsPath != filepath.Join(root, "Les ZAMIS", ModsDir) {
		t.Errorf("ModsPath = %q", got[0].ModsPath)
	}
}

// TestLocate_EmptyPrefix tests that an empty prefix accepts every instance
func TestLocate_EmptyPrefix(t *testing.T) {
	root := t.TempDir()
	mkdirs(t,
		filepath.Join(root, "A", ModsDir),
		filepath.Join(root, "B", ModsDir),
	)

	if got := Locate(root, ""); len(got) != 2 {
		t.Errorf("Locate() returned %d instances, want 2", len(got))
	}
}

// TestLocate_MissingRoot tests that a missing root yields nothing
func TestLocate_MissingRoot(t *testing.T) {
	got := Locate(filepath.Join(t.TempDir(), "does-not-exist"), "Les ZAMIS")
	if len(got) != 0 {
		t.Errorf("Locate() = %v, want empty", got)
	}
}

// TestFixed tests wrapping a configured mods folder
func TestFixed(t *testing.T) {
	modsPath := filepath.Join("games", "Les ZAMIS", "mods")
	inst := Fixed(modsPath)

	if inst.Name != "Les ZAMIS" {
		t.Errorf("Fixed().Name = %q, want %q", inst.Name, "Les ZAMIS")
	}
	if inst.ModsPath != modsPath {
		t.Errorf("Fixed().ModsPath = %q, want %q", inst.ModsPath, modsPath)
	}
	if inst.Path != filepath.Join("games", "Les ZAMIS") {
		t.Errorf("Fixed().Path = %q", inst.Path)
	}
}

// TestFind tests lookup by name
func TestFind(t *testing.T) {
	instances := []Instance{{Name: "A"}, {Name: "B"}}

	if inst, ok := Find(instances, "B"); !ok || inst.Name != "B" {
		t.Errorf("Find(B) = %v, %v", inst, ok)
	}
	if _, ok := Find(instances, "C"); ok {
		t.Error("Find(C) should not match")
	}
}
