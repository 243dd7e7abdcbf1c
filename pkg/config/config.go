// Copyright 2025 walteh LLC
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
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/ved/pkg/text"
)

// DefaultPath is the rule path used when a rule names none.
const DefaultPath = "."

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🔄 Rule is one search-and-replace entry of a rule file
type Rule struct {
	Search  []string `json:"search" yaml:"search" toml:"search"`                        // Pattern sequence; more than one forms a block
	Replace string   `json:"replace" yaml:"replace" toml:"replace"`                     // Replacement text
	Path    string   `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"` // File, directory or glob
}

// 📚 Config represents a complete rule file
type Config struct {
	Rules    []Rule `json:"rules" yaml:"rules" toml:"rules"`
	Workers  int    `json:"workers,omitempty" yaml:"workers,omitempty" toml:"workers,omitempty"`
	Reopen   bool   `json:"reopen,omitempty" yaml:"reopen,omitempty" toml:"reopen,omitempty"`
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty" toml:"log_level,omitempty"`
}

// 🔍 Validate checks the configuration and fills defaults
func (cfg *Config) Validate() error {
	if len(cfg.Rules) == 0 {
		return errors.Errorf("at least one rule is required")
	}

	for i := range cfg.Rules {
		if cfg.Rules[i].Path == "" {
			cfg.Rules[i].Path = DefaultPath
		}
		cfg.Rules[i].Path = filepath.Clean(cfg.Rules[i].Path)
	}

	if err := text.ValidateRules(cfg.TextRules()); err != nil {
		return err
	}

	if cfg.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = zerolog.InfoLevel.String()
	}
	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		return errors.Errorf("log_level: %w", err)
	}

	return nil
}

// Level returns the parsed log level, or info when it does not parse
func (cfg *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// TextRules converts the rules for the replacement engine
func (cfg *Config) TextRules() []text.Rule {
	rules := make([]text.Rule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		rules = append(rules, text.Rule{
			Patterns:    r.Search,
			Replacement: r.Replace,
			Glob:        r.Path,
		})
	}
	return rules
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	parts := make([]string, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		parts = append(parts, fmt.Sprintf("%s: %q -> %q", r.Path, strings.Join(r.Search, `\n`), r.Replace))
	}
	return fmt.Sprintf("%d rules, %d workers [%s]", len(cfg.Rules), cfg.Workers, strings.Join(parts, "; "))
}

// 🔧 YAMLParser implements the Parser interface for YAML files
type YAMLParser struct{}

func init() {
	Register(&YAMLParser{})
}

func (p *YAMLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")
}

func (p *YAMLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Errorf("parsing YAML: %w", err)
	}
	return &cfg, nil
}
