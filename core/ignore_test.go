package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnoreMatch(t *testing.T) {
	ig, err := NewIgnore([]string{"r:(.*)_generated.go$", "vendor/", "cmd/main.go"}, "")
	require.NoError(t, err)

	assert.True(t, ig.Match("bar_generated.go"))
	assert.True(t, ig.Match(filepath.Join("pkg", "bar_generated.go")))
	assert.True(t, ig.Match("vendor/example.com/x/x.go"))
	assert.True(t, ig.Match("cmd/main.go"))

	assert.False(t, ig.Match("bar.go"))
	assert.False(t, ig.Match("cmd/root.go"))
	assert.False(t, ig.Match("notvendor/x.go"))
}

func TestIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".macrosignore")
	require.NoError(t, os.WriteFile(file, []byte("# fixtures\ntestdata/\n*_old.go\n"), 0644))

	ig, err := NewIgnore(nil, file)
	require.NoError(t, err)

	assert.True(t, ig.Match("testdata/bar.go"))
	assert.True(t, ig.Match("pkg/bar_old.go"))
	assert.False(t, ig.Match("pkg/bar.go"))
}

func TestIgnoreMissingFile(t *testing.T) {
	ig, err := NewIgnore(nil, filepath.Join(t.TempDir(), ".macrosignore"))
	require.NoError(t, err)
	assert.False(t, ig.Match("bar.go"))
}

func TestIgnoreBadRegexp(t *testing.T) {
	_, err := NewIgnore([]string{"r:("}, "")
	assert.ErrorContains(t, err, "ignore pattern")
}
