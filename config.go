package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/Limetric/mysqlcat/internal/catalog"
)

// Environment variables that override DSNs from the config file.
const (
	envSourceDSN = "MYSQLCAT_SOURCE_DSN"
	envPGDSN     = "MYSQLCAT_PG_DSN"
)

// Config holds the full TOML-driven configuration.
type Config struct {
	Catalog CatalogConfig `toml:"catalog"`
	Source  SourceConfig  `toml:"source"`
	Export  ExportConfig  `toml:"export"`
	Scripts ScriptsConfig `toml:"scripts"`

	// configDir is the directory containing the TOML file, used to resolve relative SQL paths.
	configDir string
}

// CatalogConfig controls how statements are applied to the catalog.
type CatalogConfig struct {
	CaseSensitive    bool   `toml:"case_sensitive"`
	DefaultSchema    string `toml:"default_schema"`
	DefaultCharset   string `toml:"default_charset"`
	DefaultCollation string `toml:"default_collation"`
	GenFKNames       bool   `toml:"gen_fk_names"`
}

// SourceConfig points at a live MySQL server for introspect.
type SourceConfig struct {
	DSN     string `toml:"dsn"`
	Schema  string `toml:"schema"`  // defaults to the DSN database name
	Charset string `toml:"charset"` // connection character set (default: "utf8mb4")
}

// ExportConfig names the snapshot targets. Either may be empty.
type ExportConfig struct {
	SQLite         string `toml:"sqlite"`
	PostgresDSN    string `toml:"postgres_dsn"`
	PGSchema       string `toml:"pg_schema"`
	OnSchemaExists string `toml:"on_schema_exists"` // error|recreate
}

// ScriptsConfig lists SQL files ingested before and after the main input.
type ScriptsConfig struct {
	Before []string `toml:"before"`
	After  []string `toml:"after"`
}

func defaultConfig() Config {
	return Config{
		Catalog: CatalogConfig{
			DefaultCharset:   "utf8mb4",
			DefaultCollation: "utf8mb4_0900_ai_ci",
		},
		Source: SourceConfig{Charset: "utf8mb4"},
		Export: ExportConfig{
			PGSchema:       "mysqlcat",
			OnSchemaExists: "error",
		},
	}
}

// loadDotEnv loads a .env file into the process environment. A missing file
// is not an error. Variables already set are left alone.
func loadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "stat env file")
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "load env file %s", path)
	}
	return nil
}

// loadConfig reads a TOML config file and returns a Config with defaults and
// environment overrides applied. An empty path yields the defaults, with
// relative paths resolved against the working directory.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "resolve working directory")
		}
		cfg.configDir = wd
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config")
		}
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, errors.Wrap(err, "parse config")
		}
		if unknown := md.Undecoded(); len(unknown) > 0 {
			keys := make([]string, len(unknown))
			for i, k := range unknown {
				keys[i] = k.String()
			}
			return nil, errors.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, errors.Wrap(err, "resolve config path")
		}
		cfg.configDir = filepath.Dir(absPath)
	}

	if v := os.Getenv(envSourceDSN); v != "" {
		cfg.Source.DSN = v
	}
	if v := os.Getenv(envPGDSN); v != "" {
		cfg.Export.PostgresDSN = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Catalog.DefaultSchema = strings.TrimSpace(c.Catalog.DefaultSchema)
	c.Catalog.DefaultCharset = strings.ToLower(strings.TrimSpace(c.Catalog.DefaultCharset))
	c.Catalog.DefaultCollation = strings.ToLower(strings.TrimSpace(c.Catalog.DefaultCollation))

	if c.Catalog.DefaultCharset == "" {
		c.Catalog.DefaultCharset = "utf8mb4"
	}
	if catalog.DefaultCollation(c.Catalog.DefaultCharset) == "" {
		return errors.Errorf("catalog.default_charset: unknown character set %q", c.Catalog.DefaultCharset)
	}
	if c.Catalog.DefaultCollation == "" {
		c.Catalog.DefaultCollation = catalog.DefaultCollation(c.Catalog.DefaultCharset)
	}
	if cs := catalog.CharsetForCollation(c.Catalog.DefaultCollation); cs != c.Catalog.DefaultCharset {
		return errors.Errorf("catalog.default_collation %q does not belong to character set %q",
			c.Catalog.DefaultCollation, c.Catalog.DefaultCharset)
	}

	if c.Source.Charset == "" {
		c.Source.Charset = "utf8mb4"
	}

	c.Export.PGSchema = strings.TrimSpace(c.Export.PGSchema)
	if c.Export.PGSchema == "" {
		return errors.New("export.pg_schema must not be empty")
	}
	if c.Export.OnSchemaExists == "" {
		c.Export.OnSchemaExists = "error"
	}
	switch c.Export.OnSchemaExists {
	case "error", "recreate":
	default:
		return errors.New("export.on_schema_exists must be one of: error, recreate")
	}
	return nil
}

// newCatalog returns an empty catalog carrying the configured defaults.
func (c *Config) newCatalog() *catalog.Catalog {
	cat := catalog.New()
	cat.CaseSensitive = c.Catalog.CaseSensitive
	cat.DefaultCharset = c.Catalog.DefaultCharset
	cat.DefaultCollation = c.Catalog.DefaultCollation
	return cat
}

// resolvePath resolves a path relative to the config file directory.
func (c *Config) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.configDir, p)
}
