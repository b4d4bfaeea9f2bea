package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_modset.yaml
var defaultModSet []byte

// Addition is a mod file to download into the mods folder
type Addition struct {
	Name string
	URL  string
}

// ConfigFile is an extra file placed under the instance directory
type ConfigFile struct {
	Filename    string `yaml:"filename"`
	URL         string `yaml:"url"`
	Destination string `yaml:"destination"`
}

// ModSet is the remove/add list applied to an instance
type ModSet struct {
	Obsolete    []string
	Additions   []Addition
	ConfigFiles []ConfigFile
}

// Total returns the number of downloads an install performs
func (s ModSet) Total() int {
	return len(s.Additions) + len(s.ConfigFiles)
}

type modSetFile struct {
	Obsolete    []string     `yaml:"obsolete"`
	Additions   additionList `yaml:"additions"`
	ConfigFiles []ConfigFile `yaml:"config_files"`
}

// additionList decodes a YAML mapping while keeping document order
type additionList []Addition

func (l *additionList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: additions must map file names to URLs", value.Line)
	}

	seen := make(map[string]int, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]

		var name, url string
		if err := key.Decode(&name); err != nil {
			return fmt.Errorf("line %d: invalid file name: %w", key.Line, err)
		}
		if err := val.Decode(&url); err != nil {
			return fmt.Errorf("line %d: invalid URL for %s: %w", val.Line, name, err)
		}
		if first, dup := seen[name]; dup {
			return fmt.Errorf("line %d: duplicate file name %q (first on line %d)", key.Line, name, first)
		}
		seen[name] = key.Line

		*l = append(*l, Addition{Name: name, URL: url})
	}
	return nil
}

// ParseModSet decodes and validates a mod set document
func ParseModSet(data []byte) (ModSet, error) {
	var doc modSetFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ModSet{}, fmt.Errorf("failed to parse mod set: %w", err)
	}

	set := ModSet{
		Obsolete:    doc.Obsolete,
		Additions:   []Addition(doc.Additions),
		ConfigFiles: doc.ConfigFiles,
	}
	if err := set.Validate(); err != nil {
		return ModSet{}, err
	}
	return set, nil
}

// LoadModSet reads a mod set file, or the built-in set when path is empty
func LoadModSet(path string) (ModSet, error) {
	if path == "" {
		return DefaultModSet()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ModSet{}, fmt.Errorf("failed to read mod set: %w", err)
	}
	return ParseModSet(data)
}

// DefaultModSet returns the mod set compiled into the binary
func DefaultModSet() (ModSet, error) {
	return ParseModSet(defaultModSet)
}

// Validate rejects entries that cannot be applied
func (s ModSet) Validate() error {
	for i, name := range s.Obsolete {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("obsolete entry %d is empty", i+1)
		}
	}
	for _, a := range s.Additions {
		if strings.TrimSpace(a.Name) == "" {
			return fmt.Errorf("addition with URL %s has no file name", a.URL)
		}
		if strings.TrimSpace(a.URL) == "" {
			return fmt.Errorf("addition %s has no URL", a.Name)
		}
	}
	for i, f := range s.ConfigFiles {
		if f.Filename == "" || f.URL == "" {
			return fmt.Errorf("config file entry %d needs both filename and url", i+1)
		}
	}
	return nil
}
