package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wildparky/pflow/errors"
)

const (
	maxConfigSize = 10 << 20 // 10MB max config file size
	maxJSONDepth  = 100      // Maximum JSON nesting depth
	maxEnvVarLen  = 10000    // Maximum environment variable value length
)

// Format is the encoding of a network file
type Format string

// Supported network file formats
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file extension
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errors.WrapInvalid(
			fmt.Errorf("%w: unsupported config extension %q (want .json, .yaml or .yml)", errors.ErrInvalidConfig, path),
			"Loader", "FormatOf", "extension check")
	}
}

// Loader reads network files
type Loader struct {
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		validation: false,
		envPrefix:  "PFLOW",
	}
}

// EnableValidation enables or disables semantic validation after loading.
// Schema validation always runs.
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// Load reads, schema-checks and validates the network file at path
func Load(path string) (*Config, error) {
	l := NewLoader()
	l.EnableValidation(true)
	return l.LoadFile(path)
}

// LoadFile loads configuration from a single file, choosing the decoder by extension
func (l *Loader) LoadFile(path string) (*Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := readConfigFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "Loader", "LoadFile", "read "+path)
	}
	cfg, err := l.Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a network document. YAML documents are normalized to JSON
// first so both formats go through the same schema.
func (l *Loader) Parse(data []byte, format Format) (*Config, error) {
	doc, err := toJSON(data, format)
	if err != nil {
		return nil, err
	}
	if err := ValidateSchema(doc); err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Parse", "decode config")
	}

	if err := l.applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func toJSON(data []byte, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		if err := validateJSONDepth(data); err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Parse", "JSON structure check")
		}
		if !json.Valid(data) {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: malformed JSON", errors.ErrInvalidData), "Loader", "Parse", "JSON syntax check")
		}
		return data, nil
	case FormatYAML:
		var raw any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Parse", "decode YAML")
		}
		if raw == nil {
			raw = map[string]any{}
		}
		doc, err := json.Marshal(raw)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Parse", "normalize YAML")
		}
		return doc, nil
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: unknown format %q", errors.ErrInvalidConfig, format), "Loader", "Parse", "format check")
	}
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	overrides := []struct {
		key    string
		target *string
	}{
		{l.envPrefix + "_NETWORK_POLICY", &cfg.Network.Policy},
		{l.envPrefix + "_LOG_LEVEL", &cfg.Logging.Level},
		{l.envPrefix + "_LOG_FORMAT", &cfg.Logging.Format},
		{l.envPrefix + "_NATS_URL", &cfg.NATS.URL},
	}
	for _, o := range overrides {
		val := os.Getenv(o.key)
		if val == "" {
			continue
		}
		if err := validateEnvVar(o.key, val); err != nil {
			return errors.WrapInvalid(err, "Loader", "applyEnvOverrides", "environment check")
		}
		*o.target = val
	}
	return nil
}

// readConfigFile reads a config file after size and type checks
func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot stat config file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes > %d", info.Size(), maxConfigSize)
	}
	return os.ReadFile(path)
}

// validateEnvVar does basic environment variable validation
func validateEnvVar(key, value string) error {
	if len(value) > maxEnvVarLen {
		return fmt.Errorf("environment variable %s too long: %d > %d", key, len(value), maxEnvVarLen)
	}
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("null byte in environment variable %s", key)
	}
	return nil
}

// validateJSONDepth bounds nesting before the document reaches a decoder
func validateJSONDepth(data []byte) error {
	depth := 0
	inString := false
	escaped := false

	for _, b := range data {
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch b {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			inString = true
		case '{', '[':
			depth++
			if depth > maxJSONDepth {
				return fmt.Errorf("JSON nesting too deep: %d > %d", depth, maxJSONDepth)
			}
		case '}', ']':
			depth--
			if depth < 0 {
				return fmt.Errorf("malformed JSON: unbalanced brackets")
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("malformed JSON: unclosed brackets (depth=%d)", depth)
	}
	return nil
}
