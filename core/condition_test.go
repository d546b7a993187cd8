package core

import (
	"fmt"
	"go/constant"
	"go/token"
	"testing"

	"github.com/dave/dst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func admits(t *testing.T, cond dst.Expr, v int64) bool {
	t.Helper()
	ok, err := EvalCondition(cond, map[string]constant.Value{"value": constant.MakeInt64(v)})
	require.NoError(t, err)
	return ok
}

// Every operator pair over a non-empty range: the synthesized condition
// must agree with evaluating both comparisons directly.
func TestRangeConditionTruthTable(t *testing.T) {
	ops := []token.Token{token.LSS, token.LEQ, token.GTR, token.GEQ}
	ascending := map[token.Token]bool{token.LSS: true, token.LEQ: true}

	for _, op1 := range ops {
		for _, op2 := range ops {
			if ascending[op1] != ascending[op2] {
				continue
			}
			lo, hi := "2", "6"
			if !ascending[op1] {
				lo, hi = "6", "2"
			}
			macro := fmt.Sprintf("inrange(%s %s x %s %s)", lo, op1, op2, hi)

			t.Run(macro, func(t *testing.T) {
				b, err := ExtractBounds(parseCall(t, macro), "x", "int")
				require.NoError(t, err)
				cond := RangeCondition(b, "value")

				for v := int64(0); v <= 8; v++ {
					val := constant.MakeInt64(v)
					want := constant.Compare(b.Lower.Value, op1, val) && constant.Compare(val, op2, b.Upper.Value)
					assert.Equal(t, want, admits(t, cond, v), "value %d", v)
					assert.Equal(t, want, b.Admits(val), "value %d", v)
				}
			})
		}
	}
}

func TestRangeConditionBoundaries(t *testing.T) {
	tests := []struct {
		macro   string
		lowerOK bool
		upperOK bool
		lower   int64
		upper   int64
	}{
		{"inrange(0 < x < 5)", false, false, 0, 5},
		{"inrange(0 <= x < 5)", true, false, 0, 5},
		{"inrange(0 < x <= 5)", false, true, 0, 5},
		{"inrange(0 <= x <= 5)", true, true, 0, 5},
		{"inrange(5 > x > 0)", false, false, 5, 0},
		{"inrange(5 >= x >= 0)", true, true, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.macro, func(t *testing.T) {
			b, err := ExtractBounds(parseCall(t, tt.macro), "x", "int")
			require.NoError(t, err)
			cond := RangeCondition(b, "value")

			assert.Equal(t, tt.lowerOK, admits(t, cond, tt.lower))
			assert.Equal(t, tt.upperOK, admits(t, cond, tt.upper))
		})
	}
}

func TestRangeConditionNegativeBounds(t *testing.T) {
	b, err := ExtractBounds(parseCall(t, "inrange(-5 <= x < -1)"), "x", "int")
	require.NoError(t, err)
	cond := RangeCondition(b, "value")

	assert.True(t, admits(t, cond, -5))
	assert.True(t, admits(t, cond, -2))
	assert.False(t, admits(t, cond, -1))
	assert.False(t, admits(t, cond, 0))
}

func TestRangeConditionFloat(t *testing.T) {
	b, err := ExtractBounds(parseCall(t, "inrange(0 < x < 1.5)"), "x", "float64")
	require.NoError(t, err)
	cond := RangeCondition(b, "value")

	ok, err := EvalCondition(cond, map[string]constant.Value{"value": constant.MakeFloat64(1.25)})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvalCondition(cond, map[string]constant.Value{"value": constant.MakeFloat64(1.5)})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalConditionErrors(t *testing.T) {
	_, err := EvalCondition(&dst.Ident{Name: "missing"}, nil)
	assert.ErrorContains(t, err, "unbound identifier missing")

	_, err = EvalCondition(&dst.BasicLit{Kind: token.INT, Value: "1"}, nil)
	assert.ErrorContains(t, err, "not boolean")

	_, err = EvalCondition(&dst.BinaryExpr{
		X:  &dst.BasicLit{Kind: token.STRING, Value: `"a"`},
		Op: token.LSS,
		Y:  &dst.BasicLit{Kind: token.INT, Value: "1"},
	}, nil)
	assert.ErrorContains(t, err, "cannot compare")
}

func TestEvalConditionShortCircuits(t *testing.T) {
	// The right hand side is unbound and must never be reached.
	cond := &dst.BinaryExpr{
		X:  &dst.Ident{Name: "false"},
		Op: token.LAND,
		Y:  &dst.Ident{Name: "missing"},
	}
	ok, err := EvalCondition(cond, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}
