// Copyright (C) ctxkit contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads and validates cmd/ctxkit-bench's JSON
// configuration document against an embedded schema.
package config

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/vencik/ctxkit/pkg/autopool"
	"github.com/vencik/ctxkit/pkg/logio"
)

//go:embed schemas/*
var schemaFiles embed.FS

func loadSchemaFile(s string) (io.ReadCloser, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	return schemaFiles.Open(u.Host + u.Path)
}

// net/url lowercases the scheme before jsonschema looks the loader up,
// so the key is registered in lowercase.
func init() {
	jsonschema.Loaders["embedfs"] = loadSchemaFile
}

// Pool mirrors the single-shard pool parameters of the document.
type Pool struct {
	SlabSize   int `json:"slabSize"`
	PoolLimit  int `json:"poolLimit"`
	TotalLimit int `json:"totalLimit"`
}

// Autopool mirrors the auto-scaling pool parameters of the document.
type Autopool struct {
	GlobalLimit int `json:"globalLimit"`
	ThetaMicros int `json:"thetaMicros"`
	Window      int `json:"window"`
}

// Log mirrors the logging parameters of the document.
type Log struct {
	Level string `json:"level"`
	Path  string `json:"path"`
}

// Config is the parsed and schema-validated configuration document.
type Config struct {
	Pool     Pool     `json:"pool"`
	Autopool Autopool `json:"autopool"`
	Log      Log      `json:"log"`
}

// Load reads path, validates it against the embedded schema, and
// unmarshals it into a Config.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	schema, err := jsonschema.Compile("embedFS://schemas/config.schema.json")
	if err != nil {
		return nil, fmt.Errorf("ctxkit/config: compiling schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("ctxkit/config: decoding %s: %w", path, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("ctxkit/config: %s failed validation: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("ctxkit/config: unmarshaling %s: %w", path, err)
	}
	return &cfg, nil
}

// AutopoolConfig translates the document's autopool section into the
// parameters pkg/autopool.New expects.
func (c *Config) AutopoolConfig() autopool.Config {
	return autopool.Config{
		SlabSize:        c.Pool.SlabSize,
		ShardPoolLimit:  c.Pool.PoolLimit,
		ShardTotalLimit: c.Pool.TotalLimit,
		GlobalLimit:     c.Autopool.GlobalLimit,
		Theta:           time.Duration(c.Autopool.ThetaMicros) * time.Microsecond,
		Window:          c.Autopool.Window,
	}
}

var logLevels = map[string]logio.Level{
	"always": logio.LevelAlways,
	"fatal":  logio.LevelFatal,
	"error":  logio.LevelError,
	"warn":   logio.LevelWarn,
	"info":   logio.LevelInfo,
	"debug0": logio.LevelDebug0,
	"debug1": logio.LevelDebug1,
	"debug2": logio.LevelDebug2,
	"debug3": logio.LevelDebug3,
	"debug4": logio.LevelDebug4,
	"debug5": logio.LevelDebug5,
	"debug6": logio.LevelDebug6,
	"debug7": logio.LevelDebug7,
	"debug8": logio.LevelDebug8,
	"debug9": logio.LevelDebug9,
}

// LogLevel translates the document's log.level string into a
// logio.Level. The schema's enum already rejects unknown strings
// before this runs, so an unmapped value here would indicate the enum
// and this table drifted apart.
func (c *Config) LogLevel() logio.Level {
	lvl, ok := logLevels[c.Log.Level]
	if !ok {
		panic(fmt.Sprintf("ctxkit/config: log level %q accepted by schema but not mapped", c.Log.Level))
	}
	return lvl
}
