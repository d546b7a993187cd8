package main

import (
	"fmt"
	"go/ast"
	"go/constant"

	"github.com/spf13/cobra"

	"github.com/intangere/annotation_macros/core"
)

var (
	checkType   string
	checkField  string
	checkValues []string
)

var checkCmd = &cobra.Command{
	Use:   "check <macro>",
	Short: "Evaluate a range macro against values",
	Long: `Build the condition a generated setter would enforce and run it against
each --value, i.e

  macrogen check 'inrange(0 < x < 5)' --value 3 --value 5`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkType, "type", "int", "Type of the checked field")
	checkCmd.Flags().StringVar(&checkField, "field", "", "Field name, taken from the macro when empty")
	checkCmd.Flags().StringArrayVar(&checkValues, "value", nil, "Value to check (repeatable)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	call, name, err := core.ParseMacro(args[0])
	if err != nil {
		return err
	}
	if name != "inrange" {
		return fmt.Errorf("%w: check only understands inrange, got '%s'", core.ErrUnknownMacro, name)
	}

	field := checkField
	if field == "" {
		field = macroField(call)
	}
	bounds, err := core.ExtractBounds(call, field, checkType)
	if err != nil {
		return err
	}
	cond := core.RangeCondition(bounds, field)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s: %s\n", field, checkType, bounds.Constraint())

	rejected := 0
	for _, raw := range checkValues {
		v, err := core.ParseValue(raw, checkType)
		if err != nil {
			return err
		}
		ok, err := core.EvalCondition(cond, map[string]constant.Value{field: v})
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(out, "ok      %s\n", raw)
			continue
		}
		rejected++
		fmt.Fprintf(out, "reject  %s: %s\n", raw, bounds.Message())
	}

	if rejected > 0 {
		return fmt.Errorf("%d of %d values rejected", rejected, len(checkValues))
	}
	return nil
}

// macroField picks NAME out of `LOWER op NAME op UPPER`. A call of any other
// shape gives "" and is reported by ExtractBounds.
func macroField(call *ast.CallExpr) string {
	if len(call.Args) != 1 {
		return ""
	}
	outer, ok := call.Args[0].(*ast.BinaryExpr)
	if !ok {
		return ""
	}
	inner, ok := outer.X.(*ast.BinaryExpr)
	if !ok {
		return ""
	}
	if ident, ok := inner.Y.(*ast.Ident); ok {
		return ident.Name
	}
	return ""
}
