// Package config loads the fsquery command configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the file Load reads when no path is given.
const DefaultPath = "fsquery.yaml"

// DefaultDatabase is the database id used when none is configured.
const DefaultDatabase = "(default)"

// Config holds the fsquery configuration.
type Config struct {
	Project  string        `yaml:"project"`
	Database string        `yaml:"database"`
	Logging  LoggingConfig `yaml:"logging"`
	Output   OutputConfig  `yaml:"output"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Env   string `yaml:"env"`   // prod, local, dev (default: local)
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// OutputConfig controls how rendered messages are printed.
type OutputConfig struct {
	Indent  int  `yaml:"indent"`
	Compact bool `yaml:"compact"`
}

// Load reads the configuration at path. An empty path reads DefaultPath and
// falls back to defaults when that file does not exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, fs.ErrNotExist):
		data = nil
	default:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "local"
	}
	if c.Output.Indent <= 0 && !c.Output.Compact {
		c.Output.Indent = 2
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Logging.Env {
	case "prod", "local", "dev":
	default:
		return fmt.Errorf("logging.env must be one of prod, local, dev, got %q", c.Logging.Env)
	}
	if c.Logging.Level != "" {
		if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
			return fmt.Errorf("logging.level: %w", err)
		}
	}
	if c.Output.Indent < 0 || c.Output.Indent > 8 {
		return fmt.Errorf("output.indent must be between 0 and 8, got %d", c.Output.Indent)
	}
	if strings.Contains(c.Project, "/") || strings.Contains(c.Database, "/") {
		return fmt.Errorf("project and database must be ids, not resource names")
	}
	return nil
}

// Parent returns the documents root for the configured project, or "" when
// no project is set.
func (c Config) Parent() string {
	if c.Project == "" {
		return ""
	}
	database := c.Database
	if database == "" {
		database = DefaultDatabase
	}
	return fmt.Sprintf("projects/%s/databases/%s/documents", c.Project, database)
}

// IndentString returns the indent passed to protojson.
func (c Config) IndentString() string {
	if c.Output.Compact {
		return ""
	}
	return strings.Repeat(" ", c.Output.Indent)
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
