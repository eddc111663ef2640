package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/mgomes/sdlang/sd"
)

const configFileName = "sd.toml"

// projectConfig holds the settings of an sd.toml file. Command-line flags
// take precedence over it.
type projectConfig struct {
	Lang           string `toml:"lang"`
	Trace          bool   `toml:"trace"`
	TraceTokens    bool   `toml:"trace-tokens"`
	RecursionLimit int    `toml:"recursion-limit"`
	StepQuota      int    `toml:"step-quota"`

	// Dir is the directory containing the sd.toml file, empty when none was found.
	Dir string `toml:"-"`
}

func loadConfig(dir string) (*projectConfig, error) {
	path := filepath.Join(dir, configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var cfg projectConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if cfg.RecursionLimit < 0 || cfg.StepQuota < 0 {
		return nil, fmt.Errorf("%s: limits must not be negative", path)
	}
	cfg.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return &cfg, nil
}

// findConfig walks up from startDir to the nearest sd.toml. Without one it
// returns an empty config.
func findConfig(startDir string) (*projectConfig, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, configFileName)); err == nil {
			return loadConfig(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return &projectConfig{}, nil
		}
		dir = parent
	}
}

func (c *projectConfig) processorConfig(out io.Writer) sd.Config {
	cfg := sd.Config{
		Output:         out,
		RecursionLimit: c.RecursionLimit,
		StepQuota:      c.StepQuota,
	}
	if c.Trace || c.TraceTokens {
		cfg.Tracer = newLogTracer(c.TraceTokens)
	}
	return cfg
}
