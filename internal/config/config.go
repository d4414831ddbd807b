package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "xmeml2srt.yaml"

// settings read from the optional YAML file, flags override them
type Config struct {
	// render milliseconds unpadded (",0") like the first exports did
	LegacyMillis bool `yaml:"legacy_millis"`
	// apply the 1000/1001 NTSC rate when <ntsc> is TRUE
	HonorNTSC bool `yaml:"honor_ntsc"`
	// directory for generated .srt files, empty means next to the input
	OutputDir string `yaml:"output_dir"`

	Translate Translate `yaml:"translate"`
}

type Translate struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	TargetLanguage string `yaml:"target_language"`
	InputLanguage  string `yaml:"input_language"`
	// extra instructions appended to every translation request
	Prompt         string `yaml:"prompt"`
	Concurrency    int    `yaml:"concurrency"`
	BatchSize      int    `yaml:"batch_size"`
	Overlay        bool   `yaml:"overlay"`
}

func Default() *Config {
	return &Config{
		Translate: Translate{
			Provider:    "gemini",
			Concurrency: 3,
			BatchSize:   50,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error when
// path is the default location.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) normalize() {
	if c.OutputDir != "" {
		c.OutputDir = filepath.Clean(c.OutputDir)
	}

	t := &c.Translate
	t.Provider = strings.ToLower(strings.TrimSpace(t.Provider))
	if t.Provider == "" {
		t.Provider = "gemini"
	}
	t.Model = strings.TrimSpace(t.Model)
	t.TargetLanguage = strings.TrimSpace(t.TargetLanguage)
	t.InputLanguage = strings.TrimSpace(t.InputLanguage)
	t.Prompt = strings.TrimSpace(t.Prompt)
}

func (c *Config) Validate() error {
	switch c.Translate.Provider {
	case "gemini", "openai", "anthropic":
	default:
		return fmt.Errorf(
			"unsupported translation provider %q: use gemini, openai, or anthropic",
			c.Translate.Provider,
		)
	}
	if c.Translate.Concurrency <= 0 {
		return fmt.Errorf(
			"translate.concurrency must be positive, got %d",
			c.Translate.Concurrency,
		)
	}
	if c.Translate.BatchSize <= 0 {
		return fmt.Errorf(
			"translate.batch_size must be positive, got %d",
			c.Translate.BatchSize,
		)
	}
	return nil
}
