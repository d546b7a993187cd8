package helpers

import (
	"go/token"
	"strconv"

	"github.com/dave/dst"
)

// Path of this package, used by generated code to reach NewRangeError.
const Path = "github.com/intangere/annotation_macros/helpers"

func Ident(name string) *dst.Ident {
	return &dst.Ident{
		Name: name,
	}
}

// PathIdent is an identifier from another package. The restorer turns it
// into a selector and adds the import.
func PathIdent(path string, name string) *dst.Ident {
	return &dst.Ident{
		Name: name,
		Path: path,
	}
}

func Nil() *dst.Ident {
	return Ident("nil")
}

func Selector(x string, sel string) *dst.SelectorExpr {
	return &dst.SelectorExpr{
		X:   Ident(x),
		Sel: Ident(sel),
	}
}

func String(str string) dst.Expr {
	return &dst.BasicLit{
		Kind:  token.STRING,
		Value: strconv.Quote(str),
	}
}

// Number builds a numeric literal, negated when negative is set.
func Number(kind token.Token, literal string, negative bool) dst.Expr {
	lit := &dst.BasicLit{
		Kind:  kind,
		Value: literal,
	}
	if negative {
		return &dst.UnaryExpr{
			Op: token.SUB,
			X:  lit,
		}
	}
	return lit
}

func Binary(x dst.Expr, op token.Token, y dst.Expr) *dst.BinaryExpr {
	return &dst.BinaryExpr{
		X:  x,
		Op: op,
		Y:  y,
	}
}

func AddressOf(x dst.Expr) *dst.UnaryExpr {
	return &dst.UnaryExpr{
		Op: token.AND,
		X:  x,
	}
}

func Star(x dst.Expr) *dst.StarExpr {
	return &dst.StarExpr{
		X: x,
	}
}

func Call(fun dst.Expr, args ...dst.Expr) *dst.CallExpr {
	return &dst.CallExpr{
		Fun:  fun,
		Args: args,
	}
}

func Assign(lhs dst.Expr, rhs dst.Expr) *dst.AssignStmt {
	return &dst.AssignStmt{
		Lhs: []dst.Expr{lhs},
		Tok: token.ASSIGN,
		Rhs: []dst.Expr{rhs},
	}
}

func Define(name string, rhs dst.Expr) *dst.AssignStmt {
	return &dst.AssignStmt{
		Lhs: []dst.Expr{Ident(name)},
		Tok: token.DEFINE,
		Rhs: []dst.Expr{rhs},
	}
}

func Return(args ...dst.Expr) *dst.ReturnStmt {
	return &dst.ReturnStmt{
		Results: args,
	}
}

// Lines puts each statement on a line of its own. Undecorated statements
// let the printer collapse a short body onto the line of its brace.
func Lines(stmts ...dst.Stmt) []dst.Stmt {
	for _, stmt := range stmts {
		stmt.Decorations().Before = dst.NewLine
		stmt.Decorations().After = dst.NewLine
	}
	return stmts
}

func Block(stmts ...dst.Stmt) *dst.BlockStmt {
	return &dst.BlockStmt{
		List: Lines(stmts...),
	}
}

func KeyValue(key string, value dst.Expr) *dst.KeyValueExpr {
	return &dst.KeyValueExpr{
		Key:   Ident(key),
		Value: value,
	}
}

func BasicField(name string, typ dst.Expr) *dst.Field {
	return &dst.Field{
		Names: []*dst.Ident{
			Ident(name),
		},
		Type: typ,
	}
}

func BasicUnnamedField(typ dst.Expr) *dst.Field {
	return &dst.Field{
		Type: typ,
	}
}

func Fields(fields ...*dst.Field) *dst.FieldList {
	return &dst.FieldList{
		List: fields,
	}
}

func FuncDecl(name string, params *dst.FieldList, results *dst.FieldList, body ...dst.Stmt) *dst.FuncDecl {
	if params == nil {
		params = Fields()
	}
	decl := &dst.FuncDecl{
		Name: Ident(name),
		Type: &dst.FuncType{
			Func:    true,
			Params:  params,
			Results: results,
		},
		Body: Block(body...),
	}
	decl.Decs.Before = dst.EmptyLine
	decl.Decs.After = dst.EmptyLine
	return decl
}

// MethodDecl is FuncDecl with a pointer receiver.
func MethodDecl(recv string, recvType string, name string, params *dst.FieldList, results *dst.FieldList, body ...dst.Stmt) *dst.FuncDecl {
	decl := FuncDecl(name, params, results, body...)
	decl.Recv = Fields(BasicField(recv, Star(Ident(recvType))))
	return decl
}

// InsertDeclsAfter puts toInsert directly after the declaration after.
func InsertDeclsAfter(decls []dst.Decl, after dst.Decl, toInsert ...dst.Decl) ([]dst.Decl, bool) {
	for i := range decls {
		if decls[i] == after {
			out := append([]dst.Decl{}, decls[:i+1]...)
			out = append(out, toInsert...)
			return append(out, decls[i+1:]...), true
		}
	}
	return decls, false
}
