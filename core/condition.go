package core

import (
	"fmt"
	"go/constant"
	"go/token"

	"github.com/dave/dst"
)

// EvalCondition evaluates a synthesized setter condition with the
// identifiers in env bound to constant values. Only what the synthesizer
// emits is understood: numeric literals, identifiers, unary sign, the
// ordering and equality operators, && and ||.
func EvalCondition(expr dst.Expr, env map[string]constant.Value) (bool, error) {
	v, err := evalConst(expr, env)
	if err != nil {
		return false, err
	}
	if v.Kind() != constant.Bool {
		return false, fmt.Errorf("condition is not boolean: %s", v)
	}
	return constant.BoolVal(v), nil
}

func evalConst(expr dst.Expr, env map[string]constant.Value) (constant.Value, error) {
	switch e := expr.(type) {
	case *dst.BasicLit:
		v := constant.MakeFromLiteral(e.Value, e.Kind, 0)
		if v.Kind() == constant.Unknown {
			return nil, fmt.Errorf("bad literal %s", e.Value)
		}
		return v, nil

	case *dst.Ident:
		switch e.Name {
		case "true":
			return constant.MakeBool(true), nil
		case "false":
			return constant.MakeBool(false), nil
		}
		if v, ok := env[e.Name]; ok {
			return v, nil
		}
		return nil, fmt.Errorf("unbound identifier %s", e.Name)

	case *dst.ParenExpr:
		return evalConst(e.X, env)

	case *dst.UnaryExpr:
		x, err := evalConst(e.X, env)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case token.ADD, token.SUB:
			if !isNumeric(x) {
				return nil, fmt.Errorf("%s applied to non-number %s", e.Op, x)
			}
		case token.NOT:
			if x.Kind() != constant.Bool {
				return nil, fmt.Errorf("! applied to non-boolean %s", x)
			}
		default:
			return nil, fmt.Errorf("unsupported unary operator %s", e.Op)
		}
		return constant.UnaryOp(e.Op, x, 0), nil

	case *dst.BinaryExpr:
		x, err := evalConst(e.X, env)
		if err != nil {
			return nil, err
		}

		if e.Op == token.LAND || e.Op == token.LOR {
			if x.Kind() != constant.Bool {
				return nil, fmt.Errorf("%s applied to non-boolean %s", e.Op, x)
			}
			if (e.Op == token.LAND) != constant.BoolVal(x) {
				return x, nil
			}
			y, err := evalConst(e.Y, env)
			if err != nil {
				return nil, err
			}
			if y.Kind() != constant.Bool {
				return nil, fmt.Errorf("%s applied to non-boolean %s", e.Op, y)
			}
			return y, nil
		}

		y, err := evalConst(e.Y, env)
		if err != nil {
			return nil, err
		}

		switch e.Op {
		case token.LSS, token.LEQ, token.GTR, token.GEQ, token.EQL, token.NEQ:
			if !isNumeric(x) || !isNumeric(y) {
				return nil, fmt.Errorf("cannot compare %s %s %s", x, e.Op, y)
			}
			return constant.MakeBool(constant.Compare(x, e.Op, y)), nil
		}
		return nil, fmt.Errorf("unsupported operator %s", e.Op)
	}
	return nil, fmt.Errorf("unsupported expression %T", expr)
}

func isNumeric(v constant.Value) bool {
	return v.Kind() == constant.Int || v.Kind() == constant.Float
}

// SetterCondition digs the bounds check and the name of the incoming value
// out of a generated setter.
func SetterCondition(setter *dst.FuncDecl) (dst.Expr, string, error) {
	params := setter.Type.Params
	if params == nil || len(params.List) != 1 || len(params.List[0].Names) != 1 {
		return nil, "", fmt.Errorf("%s is not a setter: want exactly one parameter", setter.Name.Name)
	}
	for _, stmt := range setter.Body.List {
		if ifStmt, ok := stmt.(*dst.IfStmt); ok {
			return ifStmt.Cond, params.List[0].Names[0].Name, nil
		}
	}
	return nil, "", fmt.Errorf("%s is not a setter: no bounds check", setter.Name.Name)
}
