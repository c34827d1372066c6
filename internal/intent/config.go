package intent

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed nlu.yaml
var defaultConfig []byte

// Config is the data side of the classifier: alias table, inline extraction
// patterns, typo table and match thresholds.
type Config struct {
	Thresholds Thresholds        `yaml:"thresholds"`
	Typos      map[string]string `yaml:"typos"`
	Intents    []IntentConfig    `yaml:"intents"`
}

// Thresholds are the fuzzy similarity cut-offs.
type Thresholds struct {
	Entity float64 `yaml:"entity"`
	Task   float64 `yaml:"task"`
}

// IntentConfig is one row of the ordered intent table.
type IntentConfig struct {
	Action  Action   `yaml:"action"`
	Label   string   `yaml:"label"`
	Task    bool     `yaml:"task"`
	Dates   bool     `yaml:"dates"`
	Aliases []string `yaml:"aliases"`
	Extract []string `yaml:"extract"`
}

// DefaultConfig returns the embedded intent table.
func DefaultConfig() (*Config, error) {
	return ParseConfig(defaultConfig)
}

// LoadConfig reads an intent table from path. An empty path yields the
// embedded default.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read NLU config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a YAML intent table.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse NLU config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks thresholds, actions and that every pattern compiles.
func (c *Config) Validate() error {
	if c.Thresholds.Entity <= 0 || c.Thresholds.Entity > 1 {
		return fmt.Errorf("entity threshold %.2f out of range (0,1]", c.Thresholds.Entity)
	}
	if c.Thresholds.Task <= 0 || c.Thresholds.Task > 1 {
		return fmt.Errorf("task threshold %.2f out of range (0,1]", c.Thresholds.Task)
	}
	if len(c.Intents) == 0 {
		return fmt.Errorf("intent table is empty")
	}
	for i, ic := range c.Intents {
		if ic.Action == "" {
			return fmt.Errorf("intent #%d has no action", i)
		}
		if len(ic.Aliases) == 0 {
			return fmt.Errorf("intent %s has no aliases", ic.Action)
		}
		for _, p := range ic.Extract {
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("intent %s: bad extract pattern %q: %w", ic.Action, p, err)
			}
		}
	}
	return nil
}
