package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/arcade/errors"
	"github.com/grovetools/arcade/pkg/paths"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Format is a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Base and override file names searched in the config directory, in order.
var (
	baseFiles     = []string{"arcade.yml", "arcade.yaml", "arcade.toml"}
	overrideFiles = []string{"arcade.override.yml", "arcade.override.yaml", "arcade.override.toml"}
)

// FormatFor picks the syntax from a file extension.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Load reads and parses a single configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	cfg, err := LoadFromBytes(data, FormatFor(path))
	if err != nil {
		if ae := errors.As(err); ae != nil {
			ae.WithDetail("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads the configuration from ARCADE_CONFIG if set, otherwise
// from the config directory. Missing files are not an error.
func LoadDefault() (*Config, error) {
	if path := os.Getenv("ARCADE_CONFIG"); path != "" {
		return Load(path)
	}
	return LoadFrom(paths.ConfigDir())
}

// LoadFrom loads configuration layers from dir:
// 1. Defaults
// 2. arcade.yml / arcade.toml
// 3. arcade.override.yml - overrides all
func LoadFrom(dir string) (*Config, error) {
	return LoadFromWithLogger(dir, logrus.New())
}

// LoadFromWithLogger is LoadFrom with debug logging of every layer.
func LoadFromWithLogger(dir string, logger *logrus.Logger) (*Config, error) {
	merged := map[string]interface{}{}

	for _, path := range Files(dir) {
		logger.WithField("path", path).Debug("Loading configuration layer")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
				WithDetail("path", path)
		}
		layer, err := decodeRaw(data, FormatFor(path))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse config file").
				WithDetail("path", path)
		}
		merged = mergeMaps(merged, layer)
	}

	cfg, err := fromRaw(merged)
	if err != nil {
		return nil, err
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		if data, err := yaml.Marshal(cfg); err == nil {
			logger.Debugf("Merged configuration:\n%s", string(data))
		}
	}
	return cfg, nil
}

// LoadFromBytes parses configuration from a byte array.
func LoadFromBytes(data []byte, format Format) (*Config, error) {
	raw, err := decodeRaw(data, format)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse configuration")
	}
	return fromRaw(raw)
}

// Files returns the existing configuration files in dir in load order. Only
// the first base file found is used.
func Files(dir string) []string {
	var found []string
	for _, name := range baseFiles {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			found = append(found, path)
			break
		}
	}
	for _, name := range overrideFiles {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			found = append(found, path)
		}
	}
	return found
}

// decodeRaw expands environment variables and decodes data into a generic
// JSON-compatible map.
func decodeRaw(data []byte, format Format) (map[string]interface{}, error) {
	expanded := []byte(expandEnvVars(string(data)))

	raw := map[string]interface{}{}
	var err error
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(expanded, &raw)
	default:
		err = yaml.Unmarshal(expanded, &raw)
	}
	if err != nil {
		return nil, err
	}
	return normalize(raw)
}

// normalize round-trips through JSON so that values have the types the
// schema validator expects.
func normalize(raw map[string]interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromRaw(raw map[string]interface{}) (*Config, error) {
	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to create validator")
	}
	if err := validator.Validate(raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigValidation, "schema validation failed")
	}

	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to encode configuration")
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		// Handle default values: ${VAR:-default}
		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}

		return defaultValue
	})
}
