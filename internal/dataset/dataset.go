// Package dataset holds per-deployment configuration: how user-supplied names
// map to canonical keys, which vector index serves the dataset, and which
// attribute fields make up the display projection. One process serves one
// dataset; switching datasets is a configuration change, not a code fork.
package dataset

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// CanonicalizeFunc derives the datastore lookup key from a user-supplied
// name. It must be deterministic; distinct entities are assumed not to
// collide under the dataset's naming convention.
type CanonicalizeFunc func(name string) string

// TitleCase upper-cases the first rune and lower-cases the rest, e.g.
// "tatooine" and "TATOOINE" both map to "Tatooine".
func TitleCase() CanonicalizeFunc {
	return func(name string) string {
		name = strings.TrimSpace(name)
		if name == "" {
			return ""
		}
		r, size := utf8.DecodeRuneInString(name)
		return string(unicode.ToUpper(r)) + strings.ToLower(name[size:])
	}
}

// LowerPrefixed lower-cases the whole name and prepends a namespace tag,
// e.g. prefix "monster::" maps "Rancor" to "monster::rancor".
func LowerPrefixed(prefix string) CanonicalizeFunc {
	return func(name string) string {
		return prefix + strings.ToLower(strings.TrimSpace(name))
	}
}

// Canonicalization selects one of the built-in key derivation rules.
type Canonicalization struct {
	// Rule is "title" or "lower_prefix".
	Rule string `yaml:"rule"`
	// Prefix is the namespace tag for the lower_prefix rule.
	Prefix string `yaml:"prefix,omitempty"`
}

// Build returns the canonicalization function for the configured rule.
func (c Canonicalization) Build() (CanonicalizeFunc, error) {
	switch c.Rule {
	case "", "title":
		return TitleCase(), nil
	case "lower_prefix":
		return LowerPrefixed(c.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown canonicalization rule %q (expected: title or lower_prefix)", c.Rule)
	}
}

// Duration wraps time.Duration so yaml values like "1500ms" parse; bare
// integers are taken as seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		dur, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(dur)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value %q", value.Value)
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Search bounds the similarity workflow.
type Search struct {
	// Limit is the default candidate count when the caller does not ask for
	// one.
	Limit int `yaml:"limit"`
	// SearchTimeout bounds the vector search; expiry fails the whole
	// operation.
	SearchTimeout Duration `yaml:"search_timeout"`
	// HydrateTimeout bounds each per-candidate point read; expiry drops that
	// candidate only.
	HydrateTimeout Duration `yaml:"hydrate_timeout"`
}

// RateLimit optionally throttles tool calls.
type RateLimit struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// Config describes one deployed dataset.
type Config struct {
	// Name identifies the dataset in health output and logs.
	Name string `yaml:"name"`
	// Index is the name of the pre-built vector index.
	Index string `yaml:"index"`
	// Projection lists the attribute fields returned for similarity results.
	// Empty means all stored attributes.
	Projection []string `yaml:"projection"`

	Canonicalization Canonicalization `yaml:"canonicalization"`
	Search           Search           `yaml:"search"`
	RateLimit        RateLimit        `yaml:"rate_limit"`
}

// Default returns the configuration used when no dataset file is supplied.
func Default() *Config {
	cfg := &Config{
		Name:  "default",
		Index: "idx_entities_embedding",
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Index == "" {
		c.Index = "idx_entities_embedding"
	}
	if c.Search.Limit <= 0 {
		c.Search.Limit = 5
	}
	if c.Search.SearchTimeout <= 0 {
		c.Search.SearchTimeout = Duration(4 * time.Second)
	}
	if c.Search.HydrateTimeout <= 0 {
		c.Search.HydrateTimeout = Duration(1500 * time.Millisecond)
	}
}

// Load reads a dataset configuration from a yaml file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse dataset config %s: %w", path, err)
	}
	if _, err := cfg.Canonicalization.Build(); err != nil {
		return nil, fmt.Errorf("invalid dataset config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}
