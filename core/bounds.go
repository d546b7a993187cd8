package core

import (
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"math"
	"strconv"
	"strings"
)

// Bound is one side of a range constraint. The sign of a unary +/- is
// folded into Value; Literal keeps the unsigned literal text so generated
// code spells the number the way the annotation did.
type Bound struct {
	Value   constant.Value
	Literal string
	Kind    token.Token
}

func (b Bound) Negative() bool {
	return constant.Sign(b.Value) < 0
}

func (b Bound) String() string {
	if b.Negative() {
		return "-" + b.Literal
	}
	return b.Literal
}

// FieldBounds is the normalized form of `LOWER op NAME op UPPER`.
type FieldBounds struct {
	Field   string
	Type    string
	Lower   Bound
	Upper   Bound
	LeftOp  token.Token
	RightOp token.Token
}

// Admits reports whether v satisfies both comparisons.
func (fb FieldBounds) Admits(v constant.Value) bool {
	return constant.Compare(fb.Lower.Value, fb.LeftOp, v) && constant.Compare(v, fb.RightOp, fb.Upper.Value)
}

// Message is the text carried by the range error the setter returns.
func (fb FieldBounds) Message() string {
	return fmt.Sprintf("%s must be in the range %s %s %s %s %s",
		fb.Field, fb.Lower, operators[fb.LeftOp], fb.Field, operators[fb.RightOp], fb.Upper)
}

// Constraint renders the bounds back into annotation form, i.e `0 < x < 5`.
func (fb FieldBounds) Constraint() string {
	return fmt.Sprintf("%s %s %s %s %s", fb.Lower, operators[fb.LeftOp], fb.Field, operators[fb.RightOp], fb.Upper)
}

var operators = map[token.Token]string{
	token.LSS: "<",
	token.LEQ: "<=",
	token.GTR: ">",
	token.GEQ: ">=",
}

type numericType struct {
	integer  bool
	unsigned bool
	bits     uint
}

var numericTypes = map[string]numericType{
	"int":     {integer: true, bits: strconv.IntSize},
	"int8":    {integer: true, bits: 8},
	"int16":   {integer: true, bits: 16},
	"int32":   {integer: true, bits: 32},
	"rune":    {integer: true, bits: 32},
	"int64":   {integer: true, bits: 64},
	"uint":    {integer: true, unsigned: true, bits: strconv.IntSize},
	"uint8":   {integer: true, unsigned: true, bits: 8},
	"byte":    {integer: true, unsigned: true, bits: 8},
	"uint16":  {integer: true, unsigned: true, bits: 16},
	"uint32":  {integer: true, unsigned: true, bits: 32},
	"uint64":  {integer: true, unsigned: true, bits: 64},
	"uintptr": {integer: true, unsigned: true, bits: strconv.IntSize},
	"float32": {bits: 32},
	"float64": {bits: 64},
}

// ExtractBounds normalizes the single argument of an inrange call. The
// argument has to be a two operator chain, which Go parses left to right:
// `0 < x <= 5` is `(0 < x) <= 5`.
func ExtractBounds(call *ast.CallExpr, field string, fieldType string) (FieldBounds, error) {
	bounds := FieldBounds{Field: field, Type: fieldType}

	if _, ok := numericTypes[fieldType]; !ok {
		return bounds, fmt.Errorf("%w: field %s has non-numeric type %s", ErrUnsupportedField, field, fieldType)
	}

	if len(call.Args) != 1 {
		return bounds, fmt.Errorf("%w: inrange takes exactly one comparison, got %d arguments", ErrMalformedConstraint, len(call.Args))
	}

	outer, ok := call.Args[0].(*ast.BinaryExpr)
	if !ok {
		return bounds, fmt.Errorf("%w: expected a chained comparison, got %s", ErrMalformedConstraint, types.ExprString(call.Args[0]))
	}
	inner, ok := outer.X.(*ast.BinaryExpr)
	if !ok {
		return bounds, fmt.Errorf("%w: expected a chained comparison, got %s", ErrMalformedConstraint, types.ExprString(outer))
	}

	for _, op := range []token.Token{inner.Op, outer.Op} {
		if _, ok := operators[op]; !ok {
			return bounds, fmt.Errorf("%w: unsupported operator %s in %s", ErrMalformedConstraint, op, types.ExprString(outer))
		}
	}
	bounds.LeftOp = inner.Op
	bounds.RightOp = outer.Op

	name, ok := inner.Y.(*ast.Ident)
	if !ok || name.Name != field {
		return bounds, fmt.Errorf("%w: constraint must name field %s, got %s", ErrMalformedConstraint, field, types.ExprString(inner.Y))
	}

	var err error
	if bounds.Lower, err = extractBound(inner.X); err != nil {
		return bounds, err
	}
	if bounds.Upper, err = extractBound(outer.Y); err != nil {
		return bounds, err
	}

	for _, b := range []Bound{bounds.Lower, bounds.Upper} {
		if err := checkRepresentable(b, fieldType); err != nil {
			return bounds, err
		}
	}

	return bounds, nil
}

func extractBound(expr ast.Expr) (Bound, error) {
	switch e := expr.(type) {
	case *ast.BasicLit:
		return literalBound(e)
	case *ast.UnaryExpr:
		lit, ok := e.X.(*ast.BasicLit)
		if !ok || (e.Op != token.SUB && e.Op != token.ADD) {
			break
		}
		b, err := literalBound(lit)
		if err != nil {
			return b, err
		}
		if e.Op == token.SUB {
			b.Value = constant.UnaryOp(token.SUB, b.Value, 0)
		}
		return b, nil
	}
	return Bound{}, fmt.Errorf("%w: invalid bound for 'inrange': %s", ErrMalformedConstraint, types.ExprString(expr))
}

func literalBound(lit *ast.BasicLit) (Bound, error) {
	if lit.Kind != token.INT && lit.Kind != token.FLOAT {
		return Bound{}, fmt.Errorf("%w: invalid bound for 'inrange': %s", ErrMalformedConstraint, lit.Value)
	}
	v := constant.MakeFromLiteral(lit.Value, lit.Kind, 0)
	if v.Kind() == constant.Unknown {
		return Bound{}, fmt.Errorf("%w: invalid bound for 'inrange': %s", ErrMalformedConstraint, lit.Value)
	}
	return Bound{Value: v, Literal: lit.Value, Kind: lit.Kind}, nil
}

// checkRepresentable rejects bounds the generated comparison would not
// compile with, e.g 0.5 against an int field, -1 against a uint or 1e300
// against a float32. Floats round like any other constant conversion.
func checkRepresentable(b Bound, fieldType string) error {
	nt := numericTypes[fieldType]
	if !nt.integer {
		return checkFloat(b, fieldType, nt.bits)
	}

	iv := constant.ToInt(b.Value)
	if iv.Kind() != constant.Int {
		return fmt.Errorf("%w: bound %s is not an integer but the field is %s", ErrMalformedConstraint, b, fieldType)
	}

	var min, max constant.Value
	if nt.unsigned {
		min = constant.MakeInt64(0)
		max = constant.BinaryOp(constant.Shift(constant.MakeInt64(1), token.SHL, nt.bits), token.SUB, constant.MakeInt64(1))
	} else {
		half := constant.Shift(constant.MakeInt64(1), token.SHL, nt.bits-1)
		min = constant.UnaryOp(token.SUB, half, 0)
		max = constant.BinaryOp(half, token.SUB, constant.MakeInt64(1))
	}

	if constant.Compare(iv, token.LSS, min) || constant.Compare(iv, token.GTR, max) {
		return fmt.Errorf("%w: bound %s overflows %s", ErrMalformedConstraint, b, fieldType)
	}
	return nil
}

func checkFloat(b Bound, fieldType string, bits uint) error {
	var f float64
	if bits == 32 {
		f32, _ := constant.Float32Val(b.Value)
		f = float64(f32)
	} else {
		f, _ = constant.Float64Val(b.Value)
	}
	if math.IsInf(f, 0) {
		return fmt.Errorf("%w: bound %s overflows %s", ErrMalformedConstraint, b, fieldType)
	}
	return nil
}

// ParseValue reads a signed numeric literal the way a setter of fieldType
// would receive it. Values the type cannot hold are rejected.
func ParseValue(text string, fieldType string) (constant.Value, error) {
	if _, ok := numericTypes[fieldType]; !ok {
		return nil, fmt.Errorf("%w: %s is not a numeric type", ErrUnsupportedField, fieldType)
	}

	lit := strings.TrimSpace(text)
	negative := strings.HasPrefix(lit, "-")
	lit = strings.TrimLeft(lit, "+-")

	kind := token.INT
	v := constant.MakeFromLiteral(lit, token.INT, 0)
	if v.Kind() == constant.Unknown {
		kind = token.FLOAT
		v = constant.MakeFromLiteral(lit, token.FLOAT, 0)
	}
	if v.Kind() == constant.Unknown {
		return nil, fmt.Errorf("%q is not a number", text)
	}
	if negative {
		v = constant.UnaryOp(token.SUB, v, 0)
	}

	if err := checkRepresentable(Bound{Value: v, Literal: lit, Kind: kind}, fieldType); err != nil {
		return nil, fmt.Errorf("%q does not fit %s", text, fieldType)
	}
	return v, nil
}
