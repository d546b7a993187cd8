package main

import (
	"fmt"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/dave/dst/decorator/resolver/guess"
	"github.com/spf13/cobra"

	"github.com/intangere/annotation_macros/core"
)

var locateCmd = &cobra.Command{
	Use:   "locate <file>:<line> | <file> <name>",
	Short: "Print the function declared at a location",
	Long: `Resolve a function the way macros do and print its source. Names are
"NewBar", "(*Bar).Reset" or "Bar.String"; a line selects the function or
function literal whose func keyword is on it.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLocate,
}

func runLocate(cmd *cobra.Command, args []string) error {
	res := core.NewResolver()

	var node dst.Node
	var err error
	path := args[0]
	if len(args) == 2 {
		node, err = res.ResolveName(path, args[1])
	} else {
		loc, perr := parseLocation(args[0])
		if perr != nil {
			return perr
		}
		path = loc.File
		node, err = res.ResolveAt(loc)
	}
	if err != nil {
		return err
	}

	f, err := res.File(path)
	if err != nil {
		return err
	}
	src, err := render(node, f.Name.Name)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), src)
	return nil
}

func parseLocation(arg string) (core.SourceLocation, error) {
	i := strings.LastIndex(arg, ":")
	if i < 0 {
		return core.SourceLocation{}, fmt.Errorf("location %q: want <file>:<line>", arg)
	}
	line, err := strconv.Atoi(arg[i+1:])
	if err != nil || line < 0 {
		return core.SourceLocation{}, fmt.Errorf("location %q: bad line number", arg)
	}
	return core.SourceLocation{File: filepath.Clean(arg[:i]), Line: line}, nil
}

// render prints node on its own. Function literals and declarations are
// wrapped in a file of package pkgName since the restorer only prints whole
// files.
func render(node dst.Node, pkgName string) (string, error) {
	var f *dst.File
	switch n := node.(type) {
	case *dst.File:
		f = n
	case *dst.FuncDecl:
		f = &dst.File{Name: dst.NewIdent(pkgName), Decls: []dst.Decl{dst.Clone(n).(dst.Decl)}}
	case *dst.FuncLit:
		f = &dst.File{Name: dst.NewIdent(pkgName), Decls: []dst.Decl{&dst.GenDecl{
			Tok: token.VAR,
			Specs: []dst.Spec{&dst.ValueSpec{
				Names:  []*dst.Ident{dst.NewIdent("_")},
				Values: []dst.Expr{dst.Clone(n).(dst.Expr)},
			}},
		}}}
	default:
		return "", fmt.Errorf("cannot print %T", node)
	}

	// The resolver decorates with the package name as local path, so the
	// restorer has to agree on it.
	var b strings.Builder
	if err := decorator.NewRestorerWithImports(f.Name.Name, guess.New()).Fprint(&b, f); err != nil {
		return "", err
	}
	src := b.String()
	if _, ok := node.(*dst.File); !ok {
		src = strings.TrimSpace(strings.TrimPrefix(src, "package "+pkgName+"\n"))
	}
	return src, nil
}
