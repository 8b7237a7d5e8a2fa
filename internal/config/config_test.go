// Copyright (C) ctxkit contributors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vencik/ctxkit/pkg/logio"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadValidDocument(t *testing.T) {
	path := writeConfig(t, `{
		"pool": {"slabSize": 4096, "poolLimit": 16, "totalLimit": 64},
		"autopool": {"globalLimit": 256, "thetaMicros": 500, "window": 8},
		"log": {"level": "info", "path": "/dev/stderr"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 4096, cfg.Pool.SlabSize)
	require.Equal(t, 256, cfg.Autopool.GlobalLimit)
	require.Equal(t, logio.LevelInfo, cfg.LogLevel())
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, `{
		"pool": {"slabSize": 4096, "poolLimit": 16, "totalLimit": 64, "bogus": true},
		"autopool": {"globalLimit": 256, "thetaMicros": 500, "window": 8},
		"log": {"level": "info", "path": "/dev/stderr"}
	}`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsUnknownLogLevel(t *testing.T) {
	path := writeConfig(t, `{
		"pool": {"slabSize": 4096, "poolLimit": 16, "totalLimit": 64},
		"autopool": {"globalLimit": 256, "thetaMicros": 500, "window": 8},
		"log": {"level": "verbose", "path": "/dev/stderr"}
	}`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestAutopoolConfigTranslation(t *testing.T) {
	path := writeConfig(t, `{
		"pool": {"slabSize": 1024, "poolLimit": 4, "totalLimit": 8},
		"autopool": {"globalLimit": 32, "thetaMicros": 250, "window": 4},
		"log": {"level": "debug3", "path": "/dev/stdout"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	apCfg := cfg.AutopoolConfig()
	require.Equal(t, 1024, apCfg.SlabSize)
	require.Equal(t, 32, apCfg.GlobalLimit)
	require.Equal(t, logio.LevelDebug3, cfg.LogLevel())
}
