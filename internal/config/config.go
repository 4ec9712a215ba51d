package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	cerrors "github.com/Aman-CERP/corpusctl/internal/errors"
	"github.com/Aman-CERP/corpusctl/internal/selection"
)

// Engine backends.
const (
	BackendElasticsearch = "elasticsearch"
	BackendBleve         = "bleve"
)

// IDColumn is the metadata column used as the document id.
const IDColumn = "id"

// Config represents the complete corpusctl configuration.
type Config struct {
	Version  int            `yaml:"version" json:"version"`
	Engine   EngineConfig   `yaml:"engine" json:"engine"`
	Metadata MetadataConfig `yaml:"metadata" json:"metadata"`
	Content  ContentConfig  `yaml:"content" json:"content"`
	Index    IndexConfig    `yaml:"index" json:"index"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// EngineConfig configures the search engine the indexes live in.
type EngineConfig struct {
	// Backend is "elasticsearch" (REST API at URL) or "bleve" (embedded, at BleveDir).
	Backend string `yaml:"backend" json:"backend"`
	URL     string `yaml:"url" json:"url"`

	DocumentIndex   string `yaml:"document_index" json:"document_index"`
	CollectionIndex string `yaml:"collection_index" json:"collection_index"`

	// ConfigDir holds _global.conf.json and <index>.conf.json.
	// Empty uses the settings embedded in the binary.
	ConfigDir string `yaml:"config_dir" json:"config_dir"`

	BleveDir string        `yaml:"bleve_dir" json:"bleve_dir"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// MetadataConfig configures the tab-separated metadata source.
type MetadataConfig struct {
	FileURL string `yaml:"file_url" json:"file_url"`
	// IndexableColumns is the allow-list of columns kept in each record.
	// Must contain "id".
	IndexableColumns []string      `yaml:"indexable_columns" json:"indexable_columns"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
}

// ContentConfig configures the DTS text retrieval service.
type ContentConfig struct {
	DTSURL  string        `yaml:"dts_url" json:"dts_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// IndexConfig configures index runs.
type IndexConfig struct {
	// AllYears is the range used for --years all, as "<start>-<end>".
	AllYears string `yaml:"all_years" json:"all_years"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// defaultIndexableColumns mirrors the published encpos metadata file.
var defaultIndexableColumns = []string{
	IDColumn,
	"title_text",
	"title_rich",
	"author_name",
	"author_firstname",
	"author_gender",
	"promotion_year",
	"topic_notBefore",
	"topic_notAfter",
	"pagination",
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Engine: EngineConfig{
			Backend:         BackendElasticsearch,
			URL:             "http://localhost:9200",
			DocumentIndex:   "encpos__document",
			CollectionIndex: "encpos__collection",
			ConfigDir:       "",
			BleveDir:        defaultBleveDir(),
			Timeout:         30 * time.Second,
		},
		Metadata: MetadataConfig{
			FileURL:          "https://raw.githubusercontent.com/chartes/encpos/master/encpos.tsv",
			IndexableColumns: slices.Clone(defaultIndexableColumns),
			Timeout:          60 * time.Second,
		},
		Content: ContentConfig{
			DTSURL:  "https://dev.chartes.psl.eu/encpos/dts",
			Timeout: 60 * time.Second,
		},
		Index: IndexConfig{
			AllYears: "1849-2020",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

func defaultBleveDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".corpusctl", "bleve")
	}
	return filepath.Join(home, ".corpusctl", "bleve")
}

// AllIndexes returns the document and collection index names.
func (c *Config) AllIndexes() []string {
	return []string{c.Engine.DocumentIndex, c.Engine.CollectionIndex}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/corpusctl/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/corpusctl/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "corpusctl", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "corpusctl", "config.yaml")
	}
	return filepath.Join(home, ".config", "corpusctl", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	var parsed Config
	if err := parseYAML(configPath, &parsed); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return &parsed, nil
}

// Load loads configuration for the given working directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/corpusctl/config.yaml)
//  3. Project config (.corpusctl.yaml in dir)
//  4. .env in dir (never overrides variables already set)
//  5. Environment variables (CORPUSCTL_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, cerrors.ConfigError("failed to load user config", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, cerrors.ConfigError("failed to load project config", err)
	}

	if err := loadDotEnv(dir); err != nil {
		return nil, cerrors.ConfigError("failed to load .env", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, cerrors.ConfigError("invalid configuration", err)
	}

	return cfg, nil
}

// loadFromFile merges .corpusctl.yaml (or .corpusctl.yml) from dir if present.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".corpusctl.yaml", ".corpusctl.yml"} {
		path := filepath.Join(dir, name)
		if !fileExists(path) {
			continue
		}
		var parsed Config
		if err := parseYAML(path, &parsed); err != nil {
			return err
		}
		c.mergeWith(&parsed)
		return nil
	}
	return nil
}

// loadDotEnv loads dir/.env into the process environment without
// overriding variables that are already set.
func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if !fileExists(path) {
		return nil
	}
	return godotenv.Load(path)
}

func parseYAML(path string, into *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, into); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Engine
	if other.Engine.Backend != "" {
		c.Engine.Backend = other.Engine.Backend
	}
	if other.Engine.URL != "" {
		c.Engine.URL = other.Engine.URL
	}
	if other.Engine.DocumentIndex != "" {
		c.Engine.DocumentIndex = other.Engine.DocumentIndex
	}
	if other.Engine.CollectionIndex != "" {
		c.Engine.CollectionIndex = other.Engine.CollectionIndex
	}
	if other.Engine.ConfigDir != "" {
		c.Engine.ConfigDir = other.Engine.ConfigDir
	}
	if other.Engine.BleveDir != "" {
		c.Engine.BleveDir = other.Engine.BleveDir
	}
	if other.Engine.Timeout != 0 {
		c.Engine.Timeout = other.Engine.Timeout
	}

	// Metadata: the column list replaces the defaults outright
	if other.Metadata.FileURL != "" {
		c.Metadata.FileURL = other.Metadata.FileURL
	}
	if len(other.Metadata.IndexableColumns) > 0 {
		c.Metadata.IndexableColumns = other.Metadata.IndexableColumns
	}
	if other.Metadata.Timeout != 0 {
		c.Metadata.Timeout = other.Metadata.Timeout
	}

	// Content
	if other.Content.DTSURL != "" {
		c.Content.DTSURL = other.Content.DTSURL
	}
	if other.Content.Timeout != 0 {
		c.Content.Timeout = other.Content.Timeout
	}

	if other.Index.AllYears != "" {
		c.Index.AllYears = other.Index.AllYears
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies CORPUSCTL_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CORPUSCTL_ENGINE_BACKEND"); v != "" {
		c.Engine.Backend = v
	}
	if v := os.Getenv("CORPUSCTL_ENGINE_URL"); v != "" {
		c.Engine.URL = v
	}
	if v := os.Getenv("CORPUSCTL_DOCUMENT_INDEX"); v != "" {
		c.Engine.DocumentIndex = v
	}
	if v := os.Getenv("CORPUSCTL_COLLECTION_INDEX"); v != "" {
		c.Engine.CollectionIndex = v
	}
	if v := os.Getenv("CORPUSCTL_CONFIG_DIR"); v != "" {
		c.Engine.ConfigDir = v
	}
	if v := os.Getenv("CORPUSCTL_BLEVE_DIR"); v != "" {
		c.Engine.BleveDir = v
	}
	if v := os.Getenv("CORPUSCTL_METADATA_URL"); v != "" {
		c.Metadata.FileURL = v
	}
	if v := os.Getenv("CORPUSCTL_INDEXABLE_COLUMNS"); v != "" {
		c.Metadata.IndexableColumns = SplitList(v)
	}
	if v := os.Getenv("CORPUSCTL_DTS_URL"); v != "" {
		c.Content.DTSURL = v
	}
	if v := os.Getenv("CORPUSCTL_ALL_YEARS"); v != "" {
		c.Index.AllYears = v
	}
	if v := os.Getenv("CORPUSCTL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// SplitList splits a comma-separated list, trimming blanks and dropping
// empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Engine.Backend) {
	case BackendElasticsearch:
		if err := validateURL("engine.url", c.Engine.URL); err != nil {
			return err
		}
	case BackendBleve:
	default:
		return fmt.Errorf("engine.backend must be '%s' or '%s', got %s",
			BackendElasticsearch, BackendBleve, c.Engine.Backend)
	}

	if c.Engine.DocumentIndex == "" {
		return fmt.Errorf("engine.document_index must not be empty")
	}
	if c.Engine.CollectionIndex == "" {
		return fmt.Errorf("engine.collection_index must not be empty")
	}

	if err := validateURL("metadata.file_url", c.Metadata.FileURL); err != nil {
		return err
	}
	if !slices.Contains(c.Metadata.IndexableColumns, IDColumn) {
		return fmt.Errorf("metadata.indexable_columns must contain %q", IDColumn)
	}

	if err := validateURL("content.dts_url", c.Content.DTSURL); err != nil {
		return err
	}

	if _, err := selection.Parse(c.Index.AllYears); err != nil {
		return fmt.Errorf("index.all_years: %w", err)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", field, raw)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
