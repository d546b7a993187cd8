package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dave/dst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resolverSource = `package p

func Top() int {
	f := func() int {
		for i := 0; i < 1; i++ {
			g := func() int { return i }
			return g()
		}
		return 0
	}
	return f()
}

type Bar struct{}

func (b *Bar) Reset() {}

func (b Bar) String() string { return "" }`

func writeSource(t *testing.T, name string, src string) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))
	return path
}

func TestResolveAt(t *testing.T) {
	path := writeSource(t, "p.go", resolverSource)
	res := NewResolver()

	node, err := res.ResolveAt(SourceLocation{File: path, Line: 3})
	require.NoError(t, err)
	decl, ok := node.(*dst.FuncDecl)
	require.True(t, ok)
	assert.Equal(t, "Top", decl.Name.Name)

	for _, line := range []int{4, 6} {
		node, err := res.ResolveAt(SourceLocation{File: path, Line: line})
		require.NoError(t, err, "line %d", line)
		assert.IsType(t, &dst.FuncLit{}, node, "line %d", line)
	}

	_, err = res.ResolveAt(SourceLocation{File: path, Line: 2})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveAtCarriageReturns(t *testing.T) {
	for name, sep := range map[string]string{"crlf": "\r\n", "cr": "\r"} {
		t.Run(name, func(t *testing.T) {
			path := writeSource(t, "p.go", strings.ReplaceAll(resolverSource, "\n", sep))
			res := NewResolver()

			node, err := res.ResolveAt(SourceLocation{File: path, Line: 16})
			require.NoError(t, err)
			assert.Equal(t, "Reset", node.(*dst.FuncDecl).Name.Name)
		})
	}
}

func TestResolveName(t *testing.T) {
	path := writeSource(t, "p.go", resolverSource)
	res := NewResolver()

	for _, name := range []string{"Top", "(*Bar).Reset", "Bar.String"} {
		node, err := res.ResolveName(path, name)
		require.NoError(t, err, name)
		assert.Equal(t, name, declName(node.(*dst.FuncDecl)))
	}

	_, err := res.ResolveName(path, "NewBar")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "NewBar")

	synthesized := &dst.FuncDecl{Name: dst.NewIdent("NewBar")}
	res.Define(path, "NewBar", synthesized)
	node, err := res.ResolveName(path, "NewBar")
	require.NoError(t, err)
	assert.Same(t, synthesized, node)
}

func TestResolverDecoratesUnregisteredFiles(t *testing.T) {
	path := writeSource(t, "p.go", `package p

import "strings"

func Trim(s string) string { return strings.TrimSpace(s) }
`)
	res := NewResolver()

	var node dst.Node
	require.NotPanics(t, func() {
		var err error
		node, err = res.ResolveName(path, "Trim")
		require.NoError(t, err)
	})

	ret := node.(*dst.FuncDecl).Body.List[0].(*dst.ReturnStmt)
	fn := ret.Results[0].(*dst.CallExpr).Fun.(*dst.Ident)
	assert.Equal(t, "strings", fn.Path)
	assert.Equal(t, "TrimSpace", fn.Name)
}

func TestResolverSetPackage(t *testing.T) {
	path := writeSource(t, "p.go", resolverSource)
	chdir(t, filepath.Dir(path))

	res := NewResolver()
	res.SetPackage("example.com/p", "p.go")
	assert.Equal(t, "example.com/p", res.PackagePath(path))
	assert.Empty(t, res.PackagePath(filepath.Join(filepath.Dir(path), "q.go")))

	assert.NotPanics(t, func() {
		_, err := res.File(path)
		require.NoError(t, err)
	})
}

func TestResolverParsesOnce(t *testing.T) {
	path := writeSource(t, "p.go", resolverSource)
	res := NewResolver()

	first, err := res.File(path)
	require.NoError(t, err)

	// Later lookups are served from the cache even though the file is gone.
	require.NoError(t, os.Remove(path))

	second, err := res.File(path)
	require.NoError(t, err)
	assert.Same(t, first, second)

	node, err := res.ResolveAt(SourceLocation{File: path, Line: 3})
	require.NoError(t, err)
	assert.Same(t, first.Decls[0], node)
}

func TestResolverSourceUnavailable(t *testing.T) {
	res := NewResolver()
	_, err := res.ResolveAt(SourceLocation{File: filepath.Join(t.TempDir(), "missing.go"), Line: 1})
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorContains(t, err, "could not open file")
}

func TestResolverRelativePaths(t *testing.T) {
	path := writeSource(t, "p.go", resolverSource)
	chdir(t, filepath.Dir(path))

	res := NewResolver()
	rel, err := res.File("p.go")
	require.NoError(t, err)
	abs, err := res.File(path)
	require.NoError(t, err)
	assert.Same(t, rel, abs)
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func resolverFixture() int { return 42 }

type resolverFixtureType struct{ n int }

func (r *resolverFixtureType) reset() { r.n = 0 }

func TestResolveLiveFunction(t *testing.T) {
	res := NewResolver()

	node, err := res.Resolve(resolverFixture)
	require.NoError(t, err)
	assert.Equal(t, "resolverFixture", node.(*dst.FuncDecl).Name.Name)

	node, err = res.Resolve((*resolverFixtureType).reset)
	require.NoError(t, err)
	assert.Equal(t, "(*resolverFixtureType).reset", declName(node.(*dst.FuncDecl)))

	_, err = res.Resolve(42)
	assert.ErrorIs(t, err, ErrNotFound)
}
