package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format selects the configuration syntax.
type Format string

const (
	// FormatAuto picks the format from the file extension.
	FormatAuto Format = "auto"
	// FormatTOML forces TOML parsing.
	FormatTOML Format = "toml"
	// FormatYAML forces YAML parsing.
	FormatYAML Format = "yaml"
)

// ParseFormat converts a -format flag value into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "toml":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown config format %q (want toml or yaml)", s)
	}
}

// Load reads configuration from dir, or from the standard search path when
// dir is empty:
//  1. $XDG_CONFIG_HOME/slat/config.toml (then .yaml)
//  2. ~/.config/slat/config.toml (then .yaml)
//
// If no file exists, Default() is returned. Any parse or validation error
// is fatal to startup.
func Load(dir string, format Format) (*Config, error) {
	var candidates []string
	if dir != "" {
		candidates = candidatesIn(dir, format)
	} else {
		for _, d := range configSearchDirs() {
			candidates = append(candidates, candidatesIn(d, format)...)
		}
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p, format)
		}
	}
	if dir != "" {
		return nil, fmt.Errorf("no config file found in %s", dir)
	}
	cfg := Default()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFile reads configuration from a specific file path.
func LoadFile(path string, format Format) (*Config, error) {
	if format == FormatAuto {
		format = formatFromExt(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg, err := LoadReader(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadReader decodes a configuration document from r.
func LoadReader(r io.Reader, format Format) (*Config, error) {
	cfg := Default()
	// Parsed documents replace the default widget groups rather than
	// appending to them.
	cfg.Bar.Left, cfg.Bar.Center, cfg.Bar.Right = nil, nil, nil

	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// candidatesIn lists the file names to try inside one directory, in order.
func candidatesIn(dir string, format Format) []string {
	switch format {
	case FormatTOML:
		return []string{filepath.Join(dir, "config.toml")}
	case FormatYAML:
		return []string{
			filepath.Join(dir, "config.yaml"),
			filepath.Join(dir, "config.yml"),
		}
	default:
		return []string{
			filepath.Join(dir, "config.toml"),
			filepath.Join(dir, "config.yaml"),
			filepath.Join(dir, "config.yml"),
		}
	}
}

// formatFromExt maps a file extension to a Format, defaulting to TOML.
func formatFromExt(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// configSearchDirs returns the ordered list of directories to try.
func configSearchDirs() []string {
	home, _ := os.UserHomeDir()
	var dirs []string

	xdg := xdgConfigHome(home)
	dirs = append(dirs, filepath.Join(xdg, "slat"))

	// If XDG_CONFIG_HOME was explicitly set, also try the fallback default.
	defaultXDG := filepath.Join(home, ".config")
	if xdg != defaultXDG {
		dirs = append(dirs, filepath.Join(defaultXDG, "slat"))
	}
	return dirs
}

// xdgConfigHome returns XDG_CONFIG_HOME or ~/.config as fallback.
func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}

// applyEnvOverrides checks environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SLAT_FONT"); v != "" {
		cfg.Font.Path = v
	}
	if v := os.Getenv("SLAT_LOG_LEVEL"); v != "" {
		cfg.General.LogLevel = v
	}
}
