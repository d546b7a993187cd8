package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dave/dst"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intangere/annotation_macros/core"
)

const locateSource = `package bar

type Bar struct{ n int }

func (b *Bar) Reset() {
	b.n = 0
}

var double = func(n int) int {
	return n * 2
}
`

func runLocateWith(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	err := runLocate(cmd, args)
	return buf.String(), err
}

func TestRunLocate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bar.go")
	require.NoError(t, os.WriteFile(path, []byte(locateSource), 0644))

	out, err := runLocateWith(t, path, "(*Bar).Reset")
	require.NoError(t, err)
	assert.Contains(t, out, "func (b *Bar) Reset() {")
	assert.Contains(t, out, "b.n = 0")
	assert.NotContains(t, out, "package")

	out, err = runLocateWith(t, path+":9")
	require.NoError(t, err)
	assert.Contains(t, out, "func(n int) int")
	assert.Contains(t, out, "return n * 2")

	out, err = runLocateWith(t, path+":0")
	require.NoError(t, err)
	assert.Contains(t, out, "package bar")
}

func TestRunLocateErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bar.go")
	require.NoError(t, os.WriteFile(path, []byte(locateSource), 0644))

	_, err := runLocateWith(t, path, "NewBar")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = runLocateWith(t, filepath.Join(filepath.Dir(path), "missing.go"), "NewBar")
	assert.ErrorIs(t, err, core.ErrSourceUnavailable)

	_, err = runLocateWith(t, path+":two")
	assert.ErrorContains(t, err, "bad line number")

	_, err = runLocateWith(t, "bar.go")
	assert.ErrorContains(t, err, "want <file>:<line>")
}

func TestRunLocateQualifiedNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bar.go")
	src := "package bar\n\nimport \"strings\"\n\nfunc Trim(s string) string {\n\treturn strings.TrimSpace(s)\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	var out string
	require.NotPanics(t, func() {
		var err error
		out, err = runLocateWith(t, path, "Trim")
		require.NoError(t, err)
	})
	assert.Contains(t, out, "return strings.TrimSpace(s)")
	assert.Contains(t, out, `import "strings"`)
}

func TestRender(t *testing.T) {
	decl := &dst.FuncDecl{
		Name: dst.NewIdent("Nop"),
		Type: &dst.FuncType{Params: &dst.FieldList{}},
		Body: &dst.BlockStmt{},
	}
	var out string
	require.NotPanics(t, func() {
		var err error
		out, err = render(decl, "bar")
		require.NoError(t, err)
	})
	assert.Equal(t, "func Nop() {}", out)

	_, err := render(&dst.BlockStmt{}, "bar")
	assert.ErrorContains(t, err, "cannot print")
}

func TestParseLocation(t *testing.T) {
	loc, err := parseLocation("pkg/bar.go:12")
	require.NoError(t, err)
	assert.Equal(t, core.SourceLocation{File: "pkg/bar.go", Line: 12}, loc)
}
