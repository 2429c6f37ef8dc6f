// Package config handles project configuration stored in citemap.yml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/matsen/citemap/internal/matcher"
)

const (
	// ConfigFile is the project configuration file at the project root.
	ConfigFile = "citemap.yml"
	// EnvFile is loaded from the project root before flags are read.
	EnvFile = ".env"
	// IndexFile is the SQLite query index inside the data directory.
	IndexFile = "index.db"
	// DefaultDataDir holds the JSON stores when data_dir is unset.
	DefaultDataDir = "data"
	// RootEnv overrides the directory the project search starts from.
	RootEnv = "CITEMAP_ROOT"
)

// ErrNoProject is returned when no citemap.yml is found.
var ErrNoProject = errors.New("not in a citemap project (no " + ConfigFile + " found)")

// Document is one HTML document in declared order.
type Document struct {
	Slug string `yaml:"slug"`
	Path string `yaml:"path"`
}

// Config represents citemap.yml.
type Config struct {
	Bibliography string             `yaml:"bibliography"`
	DataDir      string             `yaml:"data_dir,omitempty"`
	Documents    []Document         `yaml:"documents"`
	Matcher      matcher.Thresholds `yaml:"matcher,omitempty"`
	LogLevel     string             `yaml:"log_level,omitempty"`

	// Root is the directory holding citemap.yml. Relative paths resolve
	// against it.
	Root string `yaml:"-"`
}

// ConfigPath returns the path to citemap.yml from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, ConfigFile)
}

// IsProject checks if the given directory holds a citemap.yml.
func IsProject(root string) bool {
	info, err := os.Stat(ConfigPath(root))
	return err == nil && !info.IsDir()
}

// FindProject walks up from start to the nearest directory containing
// citemap.yml. An empty start uses CITEMAP_ROOT, then the working directory.
func FindProject(start string) (string, error) {
	if start == "" {
		start = os.Getenv(RootEnv)
	}
	if start == "" {
		start = "."
	}
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsProject(abs) {
			return abs, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNoProject
		}
		abs = parent
	}
}

// LoadEnv loads .env from root into the process environment. Variables
// already set win. A missing file is not an error.
func LoadEnv(root string) error {
	path := filepath.Join(root, EnvFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", EnvFile, err)
	}
	return nil
}

// Load reads and validates citemap.yml at root.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Root = root
	cfg.Matcher = cfg.Matcher.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields, slug uniqueness and matcher thresholds.
func (c *Config) Validate() error {
	if c.Bibliography == "" {
		return fmt.Errorf("config: bibliography is required")
	}
	if len(c.Documents) == 0 {
		return fmt.Errorf("config: at least one document is required")
	}
	seen := make(map[string]bool, len(c.Documents))
	for i, d := range c.Documents {
		if d.Slug == "" || d.Path == "" {
			return fmt.Errorf("config: document %d needs both slug and path", i+1)
		}
		if seen[d.Slug] {
			return fmt.Errorf("config: document slug %q listed twice", d.Slug)
		}
		seen[d.Slug] = true
	}
	if err := c.Matcher.Validate(); err != nil {
		return fmt.Errorf("config: matcher.%w", err)
	}
	return nil
}

// Save writes the configuration to root.
func (c *Config) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Resolve makes a config-relative path absolute.
func (c *Config) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Root, path)
}

// BibliographyPath returns the absolute path of the BibTeX file.
func (c *Config) BibliographyPath() string {
	return c.Resolve(c.Bibliography)
}

// DataPath returns the absolute path of the store directory.
func (c *Config) DataPath() string {
	if c.DataDir == "" {
		return c.Resolve(DefaultDataDir)
	}
	return c.Resolve(c.DataDir)
}

// IndexPath returns the absolute path of the SQLite query index.
func (c *Config) IndexPath() string {
	return filepath.Join(c.DataPath(), IndexFile)
}

// Document returns the document with the given slug.
func (c *Config) Document(slug string) (Document, bool) {
	for _, d := range c.Documents {
		if d.Slug == slug {
			return d, true
		}
	}
	return Document{}, false
}

// Starter returns the configuration written by citemap init.
func Starter() *Config {
	return &Config{
		Bibliography: "references.bib",
		DataDir:      DefaultDataDir,
		Documents:    []Document{{Slug: "index", Path: "index.html"}},
		Matcher:      matcher.DefaultThresholds(),
		LogLevel:     "info",
	}
}
