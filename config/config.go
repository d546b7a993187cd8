// Package config loads generator settings from an optional ini file.
//
//	[macros]
//	tag              = macro
//	annotation       = :usemacros
//	build_tag        = macrosrc
//	generated_suffix = _generated.go
//	backing_prefix   = _
//	ignore           = r:(.*)_generated.go$, vendor/
//	ignore_file      = .macrosignore
//
//	[log]
//	level = info
package config

import (
	"fmt"
	"go/token"
	"strings"

	"gopkg.in/ini.v1"
)

const DefaultPath = ".macros.ini"

type Config struct {
	Macros Macros `ini:"macros"`
	Log    Log    `ini:"log"`
}

type Macros struct {
	// Tag is the struct tag key holding a field's macro call.
	Tag string `ini:"tag"`
	// Annotation marks a struct for processing, i.e `// [:usemacros]`.
	Annotation string `ini:"annotation"`
	// BuildTag keeps annotated sources out of normal builds. It is
	// stripped from generated files.
	BuildTag        string   `ini:"build_tag"`
	GeneratedSuffix string   `ini:"generated_suffix"`
	BackingPrefix   string   `ini:"backing_prefix"`
	Ignore          []string `ini:"ignore" delim:","`
	IgnoreFile      string   `ini:"ignore_file"`
}

type Log struct {
	Level string `ini:"level"`
}

func Default() Config {
	return Config{
		Macros: Macros{
			Tag:             "macro",
			Annotation:      ":usemacros",
			BuildTag:        "macrosrc",
			GeneratedSuffix: "_generated.go",
			BackingPrefix:   "_",
			Ignore:          []string{"r:(.*)_generated.go$"},
			IgnoreFile:      ".macrosignore",
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := ini.LooseLoad(path)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := f.MapTo(&cfg); err != nil {
		return cfg, fmt.Errorf("map config %s: %w", path, err)
	}

	cleaned := cfg.Macros.Ignore[:0]
	for _, pattern := range cfg.Macros.Ignore {
		if pattern = strings.TrimSpace(pattern); pattern != "" {
			cleaned = append(cleaned, pattern)
		}
	}
	cfg.Macros.Ignore = cleaned

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if !token.IsIdentifier(c.Macros.Tag) {
		return fmt.Errorf("config: tag %q is not a valid struct tag key", c.Macros.Tag)
	}
	if c.Macros.Annotation == "" {
		return fmt.Errorf("config: annotation must not be empty")
	}
	if c.Macros.BackingPrefix == "" || !token.IsIdentifier(c.Macros.BackingPrefix+"x") {
		return fmt.Errorf("config: backing_prefix %q does not start an identifier", c.Macros.BackingPrefix)
	}
	if !strings.HasSuffix(c.Macros.GeneratedSuffix, ".go") {
		return fmt.Errorf("config: generated_suffix %q must end in .go", c.Macros.GeneratedSuffix)
	}
	return nil
}
