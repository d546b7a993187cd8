package core

import (
	"bytes"
	"fmt"
	"go/parser"
	"go/token"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/dave/dst/decorator/resolver/goast"
)

// CompileFunc turns a synthesized function into a standalone file, prints
// it, parses the text back and returns the function found under the same
// name. The result is a fresh tree, so it can be installed anywhere without
// sharing nodes with decl.
func CompileFunc(pkgName string, pkgPath string, decl *dst.FuncDecl, imports RestorerResolver) (*dst.FuncDecl, error) {
	name := declName(decl)
	pkgPath = localPath(pkgPath, pkgName)

	unit := &dst.File{
		Name:  dst.NewIdent(pkgName),
		Decls: []dst.Decl{dst.Clone(decl).(*dst.FuncDecl)},
	}

	src, err := printFile(unit, pkgPath, imports)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSynthesis, name, err)
	}

	fset := token.NewFileSet()
	astFile, err := parser.ParseFile(fset, name+".go", src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v\n%s", ErrSynthesis, name, err, src)
	}

	dec := decorator.NewDecoratorWithImports(fset, pkgPath, goast.New())
	f, err := dec.DecorateFile(astFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSynthesis, name, err)
	}

	for _, d := range f.Decls {
		if fd, ok := d.(*dst.FuncDecl); ok && declName(fd) == name {
			fd.Decs.Before = decl.Decs.Before
			fd.Decs.After = decl.Decs.After
			return fd, nil
		}
	}
	return nil, fmt.Errorf("%w: %s missing from its compiled unit", ErrSynthesis, name)
}

func printFile(f *dst.File, pkgPath string, imports RestorerResolver) ([]byte, error) {
	var buf bytes.Buffer
	r := decorator.NewRestorerWithImports(localPath(pkgPath, f.Name.Name), imports)
	if err := r.Fprint(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// localPath is what import management treats as the package being
// written. Both the decorator and the restorer refuse an empty one.
func localPath(pkgPath string, pkgName string) string {
	if pkgPath != "" {
		return pkgPath
	}
	return pkgName
}

// declName mirrors the names the resolver indexes functions under.
func declName(fd *dst.FuncDecl) string {
	if fd.Recv == nil || len(fd.Recv.List) == 0 {
		return fd.Name.Name
	}
	switch t := fd.Recv.List[0].Type.(type) {
	case *dst.StarExpr:
		return "(*" + recvTypeName(t.X) + ")." + fd.Name.Name
	default:
		return recvTypeName(t) + "." + fd.Name.Name
	}
}

func recvTypeName(expr dst.Expr) string {
	switch t := expr.(type) {
	case *dst.Ident:
		return t.Name
	case *dst.IndexExpr:
		return recvTypeName(t.X)
	case *dst.IndexListExpr:
		return recvTypeName(t.X)
	}
	return "?"
}
