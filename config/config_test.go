package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultPath))
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte(`
[macros]
tag            = check
backing_prefix = raw
ignore         = r:(.*)_generated.go$, vendor/ ,

[log]
level = debug
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.Macros.Tag = "check"
	want.Macros.BackingPrefix = "raw"
	want.Macros.Ignore = []string{"r:(.*)_generated.go$", "vendor/"}
	want.Log.Level = "debug"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"tag", func(c *Config) { c.Macros.Tag = "not a key" }, "tag"},
		{"annotation", func(c *Config) { c.Macros.Annotation = "" }, "annotation"},
		{"prefix", func(c *Config) { c.Macros.BackingPrefix = "1" }, "backing_prefix"},
		{"suffix", func(c *Config) { c.Macros.GeneratedSuffix = "_gen.txt" }, "generated_suffix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}

	assert.NoError(t, Default().Validate())
}
