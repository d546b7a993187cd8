package core

import (
	"github.com/dave/dst"
	"github.com/dave/dst/decorator/resolver/guess"

	"github.com/intangere/annotation_macros/helpers"
)

// RestorerResolver searches several import maps (path -> package name) in
// order and guesses from the path when none of them knows the package.
type RestorerResolver []map[string]string

func NewConflictResolver(m ...map[string]string) RestorerResolver {
	return RestorerResolver(m)
}

func (r RestorerResolver) ResolvePackage(importPath string) (string, error) {
	for _, m := range r {
		if n, ok := m[importPath]; ok {
			return n, nil
		}
	}
	return guess.New().ResolvePackage(importPath)
}

// fileImports maps the aliased imports of f, so spliced code keeps using
// the names the file already chose.
func fileImports(f *dst.File) map[string]string {
	imports := map[string]string{}
	for _, spec := range f.Imports {
		if spec.Name == nil || spec.Name.Name == "_" || spec.Name.Name == "." {
			continue
		}
		path := spec.Path.Value
		if len(path) >= 2 {
			path = path[1 : len(path)-1]
		}
		imports[path] = spec.Name.Name
	}
	return imports
}

func importResolver(f *dst.File, pkgImports map[string]string) RestorerResolver {
	return NewConflictResolver(
		fileImports(f),
		pkgImports,
		map[string]string{helpers.Path: "helpers"},
	)
}
