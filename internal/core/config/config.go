// Package config manages hlsfetch's on-disk configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "config.yml"
	AppDirName     = "hlsfetch"
)

// ConfigDir returns the standard config directory for hlsfetch.
// Windows: %APPDATA%\hlsfetch\
// macOS/Linux: ~/.config/hlsfetch/
func ConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, AppDirName), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppDirName), nil
}

// ConfigPath returns the path to the config file, e.g. ~/.config/hlsfetch/config.yml
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// Config holds the defaults applied to every job unless overridden by a flag.
type Config struct {
	// Concurrency is the number of HLS segment workers (default: 4).
	Concurrency int `yaml:"concurrency,omitempty"`

	// OutputDir is the default directory jobs write into.
	OutputDir string `yaml:"output_dir,omitempty"`

	// UserAgent is sent on every request unless overridden by --ua.
	UserAgent string `yaml:"user_agent,omitempty"`

	// Referer is sent on every request unless overridden by --ref.
	Referer string `yaml:"referer,omitempty"`

	// Cookies is a raw Cookie header value applied to every request.
	Cookies string `yaml:"cookies,omitempty"`

	// NoRemux disables the post-download ffmpeg remux step.
	NoRemux bool `yaml:"no_remux,omitempty"`

	// FFmpegPath overrides PATH/FFMPEG_PATH lookup for the remux step.
	FFmpegPath string `yaml:"ffmpeg_path,omitempty"`
}

// DefaultDownloadDir returns the default download directory.
func DefaultDownloadDir() string {
	if IsRunningInDocker() {
		return "/home/hlsfetch/downloads"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./downloads"
	}

	switch runtime.GOOS {
	case "darwin", "windows":
		return filepath.Join(home, "Downloads", "hlsfetch")
	default:
		return filepath.Join(home, "downloads")
	}
}

// IsRunningInDocker detects if we're running inside a container.
func IsRunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	if data, err := os.ReadFile("/proc/1/cgroup"); err == nil {
		content := string(data)
		if strings.Contains(content, "docker") || strings.Contains(content, "containerd") {
			return true
		}
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true
	}
	return false
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Concurrency: 4,
		OutputDir:   DefaultDownloadDir(),
		UserAgent:   "hlsfetch/1.0",
	}
}

// Exists checks if the config file exists.
func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads the config from ~/.config/hlsfetch/config.yml.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.OutputDir = expandPath(cfg.OutputDir)
	return cfg, nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		if len(path) == 1 || path[1] == '/' || path[1] == '\\' {
			home, err := os.UserHomeDir()
			if err == nil {
				subPath := path[1:]
				if len(subPath) > 0 && (subPath[0] == '/' || subPath[0] == '\\') {
					subPath = subPath[1:]
				}
				return filepath.Join(home, subPath)
			}
		}
	}

	return path
}

// Save writes the config to ~/.config/hlsfetch/config.yml.
func Save(cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	configPath, err := ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	header := "# hlsfetch configuration file\n# Run 'hlsfetch config init' to regenerate with defaults\n\n"
	content := header + string(data)

	return os.WriteFile(configPath, []byte(content), 0644)
}

// SavePath returns the path where config will be saved.
func SavePath() string {
	if path, err := ConfigPath(); err == nil {
		return path
	}
	return "config.yml"
}

// Init creates a new config.yml with default values.
func Init() error {
	if Exists() {
		path, _ := ConfigPath()
		return fmt.Errorf("%s already exists", path)
	}
	return Save(DefaultConfig())
}

// LoadOrDefault loads config if it exists, otherwise returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		cfg = DefaultConfig()
	}
	return cfg
}
