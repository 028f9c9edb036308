package main

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config carries the unpack settings. Flags override whatever the file
// sets.
type Config struct {
	InputDir    string `yaml:"input_dir"`
	OutputDir   string `yaml:"output_dir"`
	MappingsDir string `yaml:"mappings_dir"`
	Workers     int    `yaml:"workers"`
}

const defaultConfigFile = "mojinet.yaml"

func defaultConfig() Config {
	return Config{
		InputDir:    ".",
		MappingsDir: "mappings",
		Workers:     runtime.NumCPU(),
	}
}

// loadConfig reads the YAML config at path. An explicitly named file
// must exist; with no path the default file is used when present and
// skipped silently otherwise.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Workers < 1 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.InputDir == "" {
		cfg.InputDir = "."
	}
	return cfg, nil
}
