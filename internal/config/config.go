package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the settings file looked up next to the executable
const FileName = "modsync"

// InstancesConfig controls how game instances are discovered
type InstancesConfig struct {
	Root   string
	Prefix string
	// FixedModsPath, when set, bypasses discovery and targets this mods folder only.
	FixedModsPath string
}

// NetworkConfig holds HTTP settings shared by every download
type NetworkConfig struct {
	InsecureSkipVerify bool
	DownloadTimeout    time.Duration
	CheckTimeout       time.Duration
}

// UpdateConfig holds self-update settings
type UpdateConfig struct {
	Enabled        bool
	VersionURL     string
	BinaryURL      string
	PayloadName    string
	HelperName     string
	MarkerName     string
	HandoffTimeout time.Duration
}

// UIConfig holds console preferences
type UIConfig struct {
	Sounds bool
	Color  bool
}

// Config is the resolved application configuration
type Config struct {
	BaseDir       string
	SelectionFile string
	ModSetFile    string
	Instances     InstancesConfig
	Network       NetworkConfig
	Update        UpdateConfig
	UI            UIConfig
}

// LoadOptions controls where configuration is read from
type LoadOptions struct {
	// ConfigFile is an explicit settings file; it must exist when set.
	ConfigFile string
	// BaseDir is the directory relative paths resolve against, usually the executable's.
	BaseDir string
}

// DefaultConfig returns the built-in configuration rooted at baseDir
func DefaultConfig(baseDir string) Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = baseDir
	}

	return Config{
		BaseDir:       baseDir,
		SelectionFile: "last_instance.txt",
		Instances: InstancesConfig{
			Root:   filepath.Join(home, "curseforge", "Minecraft", "Instances"),
			Prefix: "Les ZAMIS",
		},
		Network: NetworkConfig{
			DownloadTimeout: 30 * time.Second,
			CheckTimeout:    5 * time.Second,
		},
		Update: UpdateConfig{
			Enabled:        true,
			VersionURL:     "https://raw.githubusercontent.com/azurich/Mods_Manager/main/Mods_Manager/version.txt",
			BinaryURL:      "https://raw.githubusercontent.com/azurich/Mods_Manager/main/Mods_Manager/main_update.exe",
			PayloadName:    executableName("modsync_update"),
			HelperName:     executableName("modsync-updater"),
			MarkerName:     "modsync.ready",
			HandoffTimeout: 30 * time.Second,
		},
		UI: UIConfig{
			Sounds: true,
			Color:  true,
		},
	}
}

// Load reads configuration from defaults, an optional settings file and
// MODSYNC_* environment variables. It returns the settings file used, if any.
func Load(opts LoadOptions) (*Config, string, error) {
	baseDir := opts.BaseDir
	if baseDir == "" {
		dir, err := ExecutableDir()
		if err != nil {
			return nil, "", err
		}
		baseDir = dir
	}

	v := viper.New()

	defaults := DefaultConfig(baseDir)
	v.SetDefault("selection.file", defaults.SelectionFile)
	v.SetDefault("modset.file", defaults.ModSetFile)
	v.SetDefault("instances.root", defaults.Instances.Root)
	v.SetDefault("instances.prefix", defaults.Instances.Prefix)
	v.SetDefault("instances.fixed_mods_path", defaults.Instances.FixedModsPath)
	v.SetDefault("network.insecure_skip_verify", defaults.Network.InsecureSkipVerify)
	v.SetDefault("network.download_timeout", defaults.Network.DownloadTimeout)
	v.SetDefault("network.check_timeout", defaults.Network.CheckTimeout)
	v.SetDefault("update.enabled", defaults.Update.Enabled)
	v.SetDefault("update.version_url", defaults.Update.VersionURL)
	v.SetDefault("update.binary_url", defaults.Update.BinaryURL)
	v.SetDefault("update.payload_name", defaults.Update.PayloadName)
	v.SetDefault("update.helper_name", defaults.Update.HelperName)
	v.SetDefault("update.marker_name", defaults.Update.MarkerName)
	v.SetDefault("update.handoff_timeout", defaults.Update.HandoffTimeout)
	v.SetDefault("ui.sounds", defaults.UI.Sounds)
	v.SetDefault("ui.color", defaults.UI.Color)

	v.SetEnvPrefix("MODSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""
	if opts.ConfigFile != "" {
		if _, err := os.Stat(opts.ConfigFile); err != nil {
			return nil, "", fmt.Errorf("config file not found: %s", opts.ConfigFile)
		}
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err)
		}
		resolvedPath = opts.ConfigFile
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(baseDir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, "", fmt.Errorf("failed to read config file: %w", err)
			}
		} else {
			resolvedPath = v.ConfigFileUsed()
		}
	}

	cfg := &Config{
		BaseDir:       baseDir,
		SelectionFile: resolve(baseDir, v.GetString("selection.file")),
		ModSetFile:    resolve(baseDir, v.GetString("modset.file")),
		Instances: InstancesConfig{
			Root:          v.GetString("instances.root"),
			Prefix:        v.GetString("instances.prefix"),
			FixedModsPath: v.GetString("instances.fixed_mods_path"),
		},
		Network: NetworkConfig{
			InsecureSkipVerify: v.GetBool("network.insecure_skip_verify"),
			DownloadTimeout:    v.GetDuration("network.download_timeout"),
			CheckTimeout:       v.GetDuration("network.check_timeout"),
		},
		Update: UpdateConfig{
			Enabled:        v.GetBool("update.enabled"),
			VersionURL:     v.GetString("update.version_url"),
			BinaryURL:      v.GetString("update.binary_url"),
			PayloadName:    v.GetString("update.payload_name"),
			HelperName:     v.GetString("update.helper_name"),
			MarkerName:     v.GetString("update.marker_name"),
			HandoffTimeout: v.GetDuration("update.handoff_timeout"),
		},
		UI: UIConfig{
			Sounds: v.GetBool("ui.sounds"),
			Color:  v.GetBool("ui.color"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, resolvedPath, nil
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	if c.Instances.FixedModsPath == "" && c.Instances.Root == "" {
		return errors.New("instances.root must be set when instances.fixed_mods_path is empty")
	}
	if c.Network.DownloadTimeout <= 0 {
		return fmt.Errorf("network.download_timeout must be positive, got %s", c.Network.DownloadTimeout)
	}
	if c.Network.CheckTimeout <= 0 {
		return fmt.Errorf("network.check_timeout must be positive, got %s", c.Network.CheckTimeout)
	}
	if c.Update.Enabled {
		for key, name := range map[string]string{
			"update.payload_name": c.Update.PayloadName,
			"update.helper_name":  c.Update.HelperName,
			"update.marker_name":  c.Update.MarkerName,
		} {
			if name == "" || name != filepath.Base(name) {
				return fmt.Errorf("%s must be a plain file name, got %q", key, name)
			}
		}
		if c.Update.HandoffTimeout <= 0 {
			return fmt.Errorf("update.handoff_timeout must be positive, got %s", c.Update.HandoffTimeout)
		}
	}
	return nil
}

// ExecutableDir returns the directory holding the running binary
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

func resolve(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

func executableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}
