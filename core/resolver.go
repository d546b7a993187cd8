package core

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/dave/dst/decorator/resolver/goast"
)

// SourceLocation identifies the tree of a function by the file it lives in
// and the line of its func keyword. Line 0 is the file itself.
type SourceLocation struct {
	File string
	Line int
}

func (l SourceLocation) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Resolver maps functions back to their decorated syntax trees by parsing
// the file they were declared in. Every file is parsed at most once and
// nothing is ever evicted, so edits made to a file after it was parsed are
// not seen.
//
// The trees handed out are the cached ones: mutating them mutates what the
// next lookup returns.
type Resolver struct {
	asts     map[SourceLocation]dst.Node
	names    map[string]dst.Node
	pkgPaths map[string]string
}

func NewResolver() *Resolver {
	return &Resolver{
		asts:     map[SourceLocation]dst.Node{},
		names:    map[string]dst.Node{},
		pkgPaths: map[string]string{},
	}
}

// SetPackage records the import path of the package files belong to.
// Identifiers of that package stay unqualified when the files are
// decorated. It has no effect on files that were already parsed.
func (r *Resolver) SetPackage(pkgPath string, files ...string) {
	for _, file := range files {
		r.pkgPaths[normalizePath(file)] = pkgPath
	}
}

// PackagePath is the path recorded by SetPackage, or "" if none was.
func (r *Resolver) PackagePath(file string) string {
	return r.pkgPaths[normalizePath(file)]
}

// Resolve locates the declaration of a live function value, i.e
// Resolve(NewBar) or Resolve((*Bar).Reset).
func (r *Resolver) Resolve(fn any) (dst.Node, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("%w: %T is not a function", ErrNotFound, fn)
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return nil, fmt.Errorf("%w: no runtime information for %T", ErrNotFound, fn)
	}
	file, line := f.FileLine(f.Entry())
	return r.resolve(SourceLocation{File: file, Line: line}, f.Name())
}

// ResolveAt returns the function declared at loc, or the file when loc.Line is 0.
func (r *Resolver) ResolveAt(loc SourceLocation) (dst.Node, error) {
	return r.resolve(loc, loc.String())
}

// File returns the whole decorated file.
func (r *Resolver) File(path string) (*dst.File, error) {
	node, err := r.ResolveAt(SourceLocation{File: path})
	if err != nil {
		return nil, err
	}
	return node.(*dst.File), nil
}

// ResolveName looks a top level function or method up by name: "NewBar",
// "(*Bar).Reset" or "Bar.String".
func (r *Resolver) ResolveName(path string, name string) (dst.Node, error) {
	path = normalizePath(path)
	if node, ok := r.names[nameKey(path, name)]; ok {
		return node, nil
	}
	if _, parsed := r.asts[SourceLocation{File: path}]; !parsed {
		if err := r.parse(path); err != nil {
			return nil, err
		}
		if node, ok := r.names[nameKey(path, name)]; ok {
			return node, nil
		}
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, name, path)
}

// Define registers a synthesized function so later lookups by name find it.
func (r *Resolver) Define(path string, name string, node dst.Node) {
	r.names[nameKey(normalizePath(path), name)] = node
}

func (r *Resolver) resolve(loc SourceLocation, name string) (dst.Node, error) {
	loc.File = normalizePath(loc.File)
	if node, ok := r.asts[loc]; ok {
		return node, nil
	}

	if _, parsed := r.asts[SourceLocation{File: loc.File}]; !parsed {
		if err := r.parse(loc.File); err != nil {
			return nil, err
		}
		if node, ok := r.asts[loc]; ok {
			return node, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

func (r *Resolver) parse(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: could not open file %s: %v", ErrSourceUnavailable, path, err)
	}

	text := strings.ReplaceAll(string(src), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	fset := token.NewFileSet()
	astFile, err := parser.ParseFile(fset, path, text, parser.ParseComments)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	// goast turns qualified identifiers into path-carrying idents so the
	// restorer can manage imports for whatever we splice in later. The
	// decorator needs a local path, unregistered files use their package
	// name.
	pkgPath := r.pkgPaths[path]
	if pkgPath == "" {
		pkgPath = astFile.Name.Name
	}
	dec := decorator.NewDecoratorWithImports(fset, pkgPath, goast.New())
	f, err := dec.DecorateFile(astFile)
	if err != nil {
		return fmt.Errorf("decorate %s: %w", path, err)
	}

	r.asts[SourceLocation{File: path}] = f
	ix := indexer{r: r, path: path, fset: fset, dec: dec}
	ix.decls(astFile.Decls)
	return nil
}

// indexer walks a parsed file and records every function it can reach
// through block statements.
type indexer struct {
	r    *Resolver
	path string
	fset *token.FileSet
	dec  *decorator.Decorator
}

func (ix *indexer) add(n ast.Node, name string) {
	node, ok := ix.dec.Dst.Nodes[n]
	if !ok {
		return
	}
	line := ix.fset.Position(n.Pos()).Line
	ix.r.asts[SourceLocation{File: ix.path, Line: line}] = node
	if name != "" {
		ix.r.names[nameKey(ix.path, name)] = node
	}
}

func (ix *indexer) decls(decls []ast.Decl) {
	for _, d := range decls {
		switch d := d.(type) {
		case *ast.FuncDecl:
			ix.add(d, funcName(d))
			if d.Body != nil {
				ix.block(d.Body.List)
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				if vs, ok := spec.(*ast.ValueSpec); ok {
					for _, v := range vs.Values {
						ix.expr(v)
					}
				}
			}
		}
	}
}

func (ix *indexer) block(stmts []ast.Stmt) {
	for _, s := range stmts {
		ix.stmt(s)
	}
}

func (ix *indexer) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.BlockStmt:
		ix.block(s.List)
	case *ast.IfStmt:
		ix.stmt(s.Init)
		ix.expr(s.Cond)
		ix.block(s.Body.List)
		ix.stmt(s.Else)
	case *ast.ForStmt:
		ix.stmt(s.Init)
		ix.expr(s.Cond)
		ix.stmt(s.Post)
		ix.block(s.Body.List)
	case *ast.RangeStmt:
		ix.expr(s.X)
		ix.block(s.Body.List)
	case *ast.SwitchStmt:
		ix.stmt(s.Init)
		ix.expr(s.Tag)
		ix.block(s.Body.List)
	case *ast.TypeSwitchStmt:
		ix.stmt(s.Init)
		ix.stmt(s.Assign)
		ix.block(s.Body.List)
	case *ast.SelectStmt:
		ix.block(s.Body.List)
	case *ast.CaseClause:
		for _, e := range s.List {
			ix.expr(e)
		}
		ix.block(s.Body)
	case *ast.CommClause:
		ix.stmt(s.Comm)
		ix.block(s.Body)
	case *ast.LabeledStmt:
		ix.stmt(s.Stmt)
	case *ast.GoStmt:
		ix.expr(s.Call)
	case *ast.DeferStmt:
		ix.expr(s.Call)
	case *ast.DeclStmt:
		ix.decls([]ast.Decl{s.Decl})
	case *ast.AssignStmt:
		for _, e := range s.Rhs {
			ix.expr(e)
		}
	case *ast.ReturnStmt:
		for _, e := range s.Results {
			ix.expr(e)
		}
	case *ast.ExprStmt:
		ix.expr(s.X)
	case *ast.SendStmt:
		ix.expr(s.Value)
	}
}

// expr indexes function literals inside an expression. Their bodies are
// walked as blocks so literals nested in control flow are found too.
func (ix *indexer) expr(e ast.Expr) {
	if e == nil {
		return
	}
	ast.Inspect(e, func(n ast.Node) bool {
		if lit, ok := n.(*ast.FuncLit); ok {
			ix.add(lit, "")
			ix.block(lit.Body.List)
			return false
		}
		return true
	})
}

func funcName(d *ast.FuncDecl) string {
	if d.Recv == nil || len(d.Recv.List) == 0 {
		return d.Name.Name
	}
	if star, ok := d.Recv.List[0].Type.(*ast.StarExpr); ok {
		return "(*" + astRecvName(star.X) + ")." + d.Name.Name
	}
	return astRecvName(d.Recv.List[0].Type) + "." + d.Name.Name
}

// astRecvName drops type parameters, Bar[K] is indexed as Bar.
func astRecvName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return astRecvName(t.X)
	case *ast.IndexListExpr:
		return astRecvName(t.X)
	}
	return types.ExprString(expr)
}

func nameKey(path string, name string) string {
	return path + "\x00" + name
}

func normalizePath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
