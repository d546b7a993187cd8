package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/intangere/annotation_macros/core"
	"github.com/intangere/annotation_macros/internal/ctxlog"
)

var (
	generateReport  string
	generateDryRun  bool
	generateNoColor bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [packages]",
	Short: "Rewrite annotated structs into generated files",
	Long: `Load the packages matching the given patterns (./... by default) with the
macro build tag set, run the macros of every annotated struct and write the
result next to each source file.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateReport, "report", "", "Write a YAML report of the rewritten fields to this file")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "Print generated files instead of writing them")
	generateCmd.Flags().BoolVar(&generateNoColor, "no-color", false, "Disable colored output")
}

// styles holds the color formatters of the summary.
type styles struct {
	heading *color.Color
	file    *color.Color
	field   *color.Color
	action  *color.Color
}

func newStyles(enabled bool) *styles {
	s := &styles{
		heading: color.New(color.Bold),
		file:    color.New(color.Bold, color.FgHiBlue),
		field:   color.New(color.FgHiGreen),
		action:  color.New(color.FgYellow),
	}
	if !enabled {
		s.heading.DisableColor()
		s.file.DisableColor()
		s.field.DisableColor()
		s.action.DisableColor()
	}
	return s
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	log := ctxlog.FromContext(ctx)

	patterns := args
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	ignore, err := core.NewIgnore(cfg.Macros.Ignore, cfg.Macros.IgnoreFile)
	if err != nil {
		return err
	}
	pkgs, err := core.Build(ctx, patterns, cfg, ignore)
	if err != nil {
		return err
	}

	gen := core.NewGenerator(cfg)
	report, err := gen.Run(ctx, pkgs, !generateDryRun)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if generateDryRun {
		for _, f := range report.Files {
			fmt.Fprintf(out, "// %s\n%s\n", f.Output, f.Generated)
		}
	} else {
		printSummary(out, report, newStyles(!generateNoColor && !color.NoColor))
	}

	if generateReport != "" {
		if err := writeReport(generateReport, report); err != nil {
			return err
		}
		log.Debug("wrote report", "path", generateReport)
	}
	return nil
}

func printSummary(w io.Writer, report *core.Report, s *styles) {
	for _, f := range report.Files {
		fmt.Fprintf(w, "%s -> %s\n", s.file.Sprint(f.Source), f.Output)
		for _, st := range f.Structs {
			fmt.Fprintf(w, "  %s\n", s.heading.Sprint(st.Name))
			for _, field := range st.Fields {
				fmt.Fprintf(w, "    %s %s(%s) %s\n",
					s.field.Sprint(field.Name),
					field.Macro,
					field.Constraint,
					s.action.Sprintf("%s %s", field.Constructor, "constructor"))
			}
		}
	}
	fmt.Fprintf(w, "%s\n", s.heading.Sprintf("Rewrote %d fields in %d files", report.FieldCount(), len(report.Files)))
}

func writeReport(path string, report *core.Report) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
