package instance

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ModsDir is the folder inside an instance that holds mod jars
const ModsDir = "mods"

// Instance is a game instance directory with a mods folder
type Instance struct {
	Name     string
	Path     string
	ModsPath string
}

// Locate lists the subdirectories of root whose name starts with prefix and
// which contain a mods folder. A missing or unreadable root yields no instances.
func Locate(root, prefix string) []Instance {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}

	var instances []Instance
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}

		dir := filepath.Join(root, entry.Name())
		if !HasMods(dir) {
			continue
		}

		instances = append(instances, Instance{
			Name:     entry.Name(),
			Path:     dir,
			ModsPath: filepath.Join(dir, ModsDir),
		})
	}

	sort.Slice(instances, func(i, j int) bool {
		return instances[i].Name < instances[j].Name
	})
	return instances
}

// Fixed wraps a configured mods folder as the only instance
func Fixed(modsPath string) Instance {
	clean := filepath.Clean(modsPath)
	parent := filepath.Dir(clean)
	return Instance{
		Name:     filepath.Base(parent),
		Path:     parent,
		ModsPath: clean,
	}
}

// HasMods checks if dir contains a mods folder
func HasMods(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ModsDir))
	return err == nil && info.IsDir()
}

// Names returns instance names in order
func Names(instances []Instance) []string {
	names := make([]string, 0, len(instances))
	for _, inst := range instances {
		names = append(names, inst.Name)
	}
	return names
}

// Find returns the instance with the given name
func Find(instances []Instance, name string) (Instance, bool) {
	for _, inst := range instances {
		if inst.Name == name {
			return inst, true
		}
	}
	return Instance{}, false
}
