// Package config loads RQL's TOML configuration file: the schema and
// data directories, the GPU workgroup size, and the log level.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/rql-db/rql/internal/rqlerr"
)

// Config is the top-level shape of rql.toml.
type Config struct {
	SchemaDir     string `toml:"schema_dir"`
	DataDir       string `toml:"data_dir"`
	WorkgroupSize int    `toml:"workgroup_size"`
	LogLevel      string `toml:"log_level"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		SchemaDir:     "schema",
		DataDir:       "data",
		WorkgroupSize: 64,
		LogLevel:      "info",
	}
}

// Load reads and decodes path, filling any field the file omits from
// Default(). A missing path is not an error; Load falls back to
// Default() so `rql` can run with no configuration file at all.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	var onFile Config
	if _, err := toml.DecodeFile(path, &onFile); err != nil {
		return Config{}, rqlerr.New(rqlerr.KindInvalidData, "config.Load", fmt.Errorf("decoding %q: %w", path, err))
	}

	if onFile.SchemaDir != "" {
		cfg.SchemaDir = onFile.SchemaDir
	}
	if onFile.DataDir != "" {
		cfg.DataDir = onFile.DataDir
	}
	if onFile.WorkgroupSize != 0 {
		cfg.WorkgroupSize = onFile.WorkgroupSize
	}
	if onFile.LogLevel != "" {
		cfg.LogLevel = onFile.LogLevel
	}
	return cfg, nil
}
