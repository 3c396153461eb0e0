// Package config loads the driver's optional per-run settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigName is the file looked up next to the schema path (see
// ConfigPathFor).
const DefaultConfigName = "xlstool.yml"

// Config holds per-run driver settings: the source codepage, the output
// directory, and per-message-type overrides of the excel/sheet/output
// message options of spec.md §3.
type Config struct {
	Codepage string            `yaml:"codepage"`
	OutDir   string            `yaml:"out_dir"`
	Excel    map[string]string `yaml:"excel"`
	Sheet    map[string]string `yaml:"sheet"`
	Output   map[string]string `yaml:"output"`
}

// ConfigPathFor returns the conventional config path next to a schema file.
func ConfigPathFor(schemaPath string) string {
	return filepath.Join(filepath.Dir(schemaPath), DefaultConfigName)
}

// Load reads path if it exists. A missing file is not an error: the
// config file is optional and an empty Config carries no overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// OverrideExcel returns the excel-path override for a message type, if any.
func (c *Config) OverrideExcel(message string) (string, bool) {
	v, ok := c.Excel[message]
	return v, ok
}

// OverrideSheet returns the sheet-name override for a message type, if any.
func (c *Config) OverrideSheet(message string) (string, bool) {
	v, ok := c.Sheet[message]
	return v, ok
}

// OverrideOutput returns the output-basename override for a message type,
// if any.
func (c *Config) OverrideOutput(message string) (string, bool) {
	v, ok := c.Output[message]
	return v, ok
}
