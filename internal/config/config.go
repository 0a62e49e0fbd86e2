package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Input     InputConfig     `toml:"input"`
	Normalize NormalizeConfig `toml:"normalize"`
	Output    OutputConfig    `toml:"output"`
	Watch     WatchConfig     `toml:"watch"`
}

type InputConfig struct {
	APIMap          string   `toml:"api_map"`
	Headers         []string `toml:"headers"`
	ExcludePatterns []string `toml:"exclude_patterns"`
	Grammar         string   `toml:"grammar"`
}

type NormalizeConfig struct {
	ElideVoidParams bool `toml:"elide_void_params"`
	FailOnErrors    bool `toml:"fail_on_errors"`
}

type OutputConfig struct {
	Format string `toml:"format"`
	Path   string `toml:"path"`
}

type WatchConfig struct {
	DebounceMs int `toml:"debounce_ms"`
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Try to load from file
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	} else {
		// Try default locations
		locations := []string{
			".apiloom/config.toml",
			filepath.Join(os.Getenv("HOME"), ".apiloom/config.toml"),
			"/etc/apiloom/config.toml",
		}
		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				if _, err := toml.DecodeFile(loc, cfg); err == nil {
					break
				}
			}
		}
	}

	// Override with environment variables
	applyEnvOverrides(cfg)

	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			ExcludePatterns: []string{".git", "*_private.h"},
			Grammar:         "cpp",
		},
		Normalize: NormalizeConfig{
			ElideVoidParams: true,
		},
		Output: OutputConfig{
			Format: "json",
		},
		Watch: WatchConfig{
			DebounceMs: 100,
		},
	}
}

func Validate(cfg *Config) []string {
	var warnings []string

	// Validate input settings
	if cfg.Input.APIMap == "" && len(cfg.Input.Headers) == 0 {
		warnings = append(warnings, "No input configured: set input.api_map or input.headers")
	}
	switch cfg.Input.Grammar {
	case "c", "cpp":
	default:
		warnings = append(warnings, "Input grammar must be 'c' or 'cpp'")
	}
	for _, p := range cfg.Input.ExcludePatterns {
		if _, err := filepath.Match(p, ""); err != nil {
			warnings = append(warnings, "Invalid exclude pattern: "+p)
		}
	}

	// Validate output settings
	switch cfg.Output.Format {
	case "json", "yaml", "table":
	default:
		warnings = append(warnings, "Output format must be one of json, yaml, table")
	}

	// Validate watch settings
	if cfg.Watch.DebounceMs < 10 {
		warnings = append(warnings, "Watch debounce must be at least 10ms")
	}
	if cfg.Watch.DebounceMs > 60000 {
		warnings = append(warnings, "Watch debounce exceeds reasonable maximum (60000ms)")
	}

	return warnings
}

func applyEnvOverrides(cfg *Config) {
	// Input settings
	if v := os.Getenv("APILOOM_API_MAP"); v != "" {
		cfg.Input.APIMap = v
	}
	if v := os.Getenv("APILOOM_HEADERS"); v != "" {
		cfg.Input.Headers = splitList(v)
	}
	if v := os.Getenv("APILOOM_GRAMMAR"); v != "" {
		cfg.Input.Grammar = v
	}

	// Normalize settings
	if v := os.Getenv("APILOOM_ELIDE_VOID_PARAMS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Normalize.ElideVoidParams = b
		}
	}
	if v := os.Getenv("APILOOM_FAIL_ON_ERRORS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Normalize.FailOnErrors = b
		}
	}

	// Output settings
	if v := os.Getenv("APILOOM_OUTPUT_FORMAT"); v != "" {
		cfg.Output.Format = v
	}
	if v := os.Getenv("APILOOM_OUTPUT_PATH"); v != "" {
		cfg.Output.Path = v
	}

	// Watch settings
	if v := os.Getenv("APILOOM_WATCH_DEBOUNCE_MS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Watch.DebounceMs = i
		}
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, string(os.PathListSeparator)) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
