package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads the configuration at path and merges each overrides file over it in order.
// Missing overrides files are skipped; a missing main file is an error. An empty path
// returns Default.
//
// Parameters:
//   - path: the main YAML file
//   - overrides: optional YAML files merged over the main file
//
// Returns:
//   - *Config: the validated configuration
//   - error: a read, parse or validation error
func Load(path string, overrides ...string) (*Config, error) {
	merged, err := loadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	for _, o := range overrides {
		if o == "" {
			continue
		}
		if _, err := os.Stat(o); err != nil {
			continue
		}
		data, err := loadFile(o)
		if err != nil {
			return nil, fmt.Errorf("failed to load overrides from %s: %w", o, err)
		}
		merged = mergeConfigs(merged, data)
	}

	return Decode(merged)
}

// Decode builds a Config from a generic YAML document. Keys the document leaves out keep
// their Default values.
//
// Parameters:
//   - data: the decoded YAML mapping
//
// Returns:
//   - *Config: the validated configuration
//   - error: a decode or validation error
func Decode(data map[string]any) (*Config, error) {
	cfg := Default()
	if len(data) > 0 {
		raw, err := yaml.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode config document: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config document: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadFile reads and parses a YAML file into a map.
func loadFile(path string) (map[string]any, error) {
	if path == "" {
		return make(map[string]any), nil
	}

	if !filepath.IsAbs(path) {
		var err error
		path, err = filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML from %s: %w", path, err)
	}
	if data == nil {
		data = make(map[string]any)
	}
	return data, nil
}

// mergeConfigs merges override into base. Mappings merge recursively; scalars and
// sequences are replaced.
func mergeConfigs(base, override map[string]any) map[string]any {
	for key, val := range override {
		if baseMap, ok := base[key].(map[string]any); ok {
			if overrideMap, ok := val.(map[string]any); ok {
				base[key] = mergeConfigs(baseMap, overrideMap)
				continue
			}
		}
		base[key] = val
	}
	return base
}
