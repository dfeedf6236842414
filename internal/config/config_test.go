// Copyright 2022 RelationalAI, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[default]
format = json
memory_limit = 1048576

[dev]
suffix = _right
compression = zstd
log_level = debug
seq_url = http://localhost:5341
`

func TestLoadConfigString(t *testing.T) {
	cfg := Default()
	require.NoError(t, LoadConfigString(sampleConfig, "default", &cfg))
	require.Equal(t, "json", cfg.Format)
	require.Equal(t, int64(1048576), cfg.MemoryLimit)
	require.Equal(t, "none", cfg.Compression)

	cfg = Default()
	require.NoError(t, LoadConfigString(sampleConfig, "dev", &cfg))
	require.Equal(t, Config{
		Suffix:      "_right",
		Format:      "pretty",
		Compression: "zstd",
		LogLevel:    "debug",
		SeqURL:      "http://localhost:5341",
	}, cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	cfg := Default()
	err := LoadConfigString(sampleConfig, "prod", &cfg)
	require.EqualError(t, err, "config profile 'prod' not found")

	err = LoadConfigString("[default]\nmemory_limit = lots\n", "default", &cfg)
	require.Error(t, err)

	err = LoadConfigFile(filepath.Join(t.TempDir(), "missing"), "default", &cfg)
	require.True(t, errors.Is(err, ErrConfigNotFound))
}

func TestLoadConfigFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(fname, []byte(sampleConfig), 0o600))

	cfg := Default()
	require.NoError(t, LoadConfigFile(fname, "dev", &cfg))
	require.Equal(t, "_right", cfg.Suffix)
}

func TestExpandUser(t *testing.T) {
	fname, err := expandUser("/etc/marrow")
	require.NoError(t, err)
	require.Equal(t, "/etc/marrow", fname)

	fname, err = expandUser("~/.marrow/config")
	require.NoError(t, err)
	require.NotContains(t, fname, "~")
	require.True(t, filepath.IsAbs(fname))
}
