// Package paths resolves the configuration, data and log directory
// locations of mdrimport.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// appName names the per-user application directories.
const appName = "mdrimport"

// ConfigFileName is the configuration file inside the config directory.
const ConfigFileName = "config.yaml"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "MDRIMPORT_CONFIG_DIR"
	EnvDataDir   = "MDRIMPORT_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/mdrimport (fallback ~/.config/mdrimport)
// macOS:   ~/Library/Application Support/mdrimport
// Windows: %APPDATA%/mdrimport
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// DefaultDataDir returns the platform-specific default data directory,
// the root of the SQLite databases.
//
// Linux:   $XDG_DATA_HOME/mdrimport (fallback ~/.local/share/mdrimport)
// macOS and Windows: same as the config directory.
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	}
	return DefaultConfigDir()
}

// DefaultLogDir returns the directory holding per-run log files:
// a logs directory under the data directory.
func DefaultLogDir() (string, error) {
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs"), nil
}

func xdgDir(env, fallback string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appName), nil
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > MDRIMPORT_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence
// chain: flag > config value > MDRIMPORT_DATA_DIR env > DefaultDataDir().
func ResolveDataDir(flag, configValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultDataDir()
}

// ConfigFile returns the path of the configuration file in dir.
func ConfigFile(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}
