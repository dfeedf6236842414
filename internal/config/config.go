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

// Package config loads marrow command line settings from an ini profile file.
package config

import (
	"os"
	"os/user"
	"path"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

const DefaultConfigFile = "~/.marrow/config"
const DefaultConfigProfile = "default"

var ErrConfigNotFound = errors.New("config file not found")

type Config struct {
	Suffix      string `json:"suffix"`
	Format      string `json:"format"`
	Compression string `json:"compression"`
	MemoryLimit int64  `json:"memory_limit"`
	LogLevel    string `json:"log_level"`
	SeqURL      string `json:"seq_url"`
}

// Default returns the settings used when no config file is present.
func Default() Config {
	return Config{
		Format:      "pretty",
		Compression: "none",
		LogLevel:    "info",
	}
}

// Expand the given file path if it start with a ~/
func expandUser(fname string) (string, error) {
	if strings.HasPrefix(fname, "~/") {
		usr, err := user.Current()
		if err != nil {
			return "", err
		}
		return path.Join(usr.HomeDir, fname[2:]), nil
	}
	return fname, nil
}

// Load the named stanza from the source.
// Source can be either filename or config string
func loadStanza(source interface{}, profile string) (*ini.Section, error) {
	info, err := ini.Load(source)
	if err != nil {
		return nil, errors.Wrapf(err, "error loading config")
	}
	if !info.HasSection(profile) {
		return nil, errors.Errorf("config profile '%s' not found", profile)
	}
	stanza := info.Section(profile)
	return stanza, nil
}

func parseConfigStanza(stanza *ini.Section, cfg *Config) error {
	if v := stanza.Key("suffix").String(); v != "" {
		cfg.Suffix = v
	}
	if v := stanza.Key("format").String(); v != "" {
		cfg.Format = v
	}
	if v := stanza.Key("compression").String(); v != "" {
		cfg.Compression = v
	}
	if stanza.HasKey("memory_limit") {
		v, err := stanza.Key("memory_limit").Int64()
		if err != nil {
			return errors.Wrapf(err, "bad memory_limit")
		}
		cfg.MemoryLimit = v
	}
	if v := stanza.Key("log_level").String(); v != "" {
		cfg.LogLevel = v
	}
	if v := stanza.Key("seq_url").String(); v != "" {
		cfg.SeqURL = v
	}
	return nil
}

// Load settings from the given profile of the provided config source.
func LoadConfigString(source, profile string, cfg *Config) error {
	stanza, err := loadStanza([]byte(source), profile)
	if err != nil {
		return err
	}
	return parseConfigStanza(stanza, cfg)
}

// Load settings from the given profile of the named config file.
func LoadConfigFile(fname, profile string, cfg *Config) error {
	fname, err := expandUser(fname)
	if err != nil {
		return err
	}
	if _, err := os.Stat(fname); os.IsNotExist(err) {
		return errors.Wrapf(ErrConfigNotFound, "%s", fname)
	}
	stanza, err := loadStanza(fname, profile)
	if err != nil {
		return err
	}
	return parseConfigStanza(stanza, cfg)
}
