package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/intangere/annotation_macros/config"
	"github.com/intangere/annotation_macros/internal/ctxlog"
)

var (
	configPath string
	verbose    bool

	// cfg is loaded once per invocation by the root command.
	cfg = config.Default()
)

var rootCmd = &cobra.Command{
	Use:   "macrogen",
	Short: "Generate checked accessors from struct tag macros",
	Long: `macrogen rewrites structs annotated with // [:usemacros].

Every field carrying a macro tag, i.e ` + "`macro:\"inrange(0 < x < 5)\"`" + `, is
replaced by a backing field behind a getter and a setter that enforces the
constraint. Annotated sources are expected behind the macrosrc build tag;
the result is written next to them as <file>_generated.go.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the ini config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if verbose {
		loaded.Log.Level = "debug"
	}
	cfg = loaded

	logger := ctxlog.New(cmd.ErrOrStderr(), cfg.Log.Level)
	cmd.SetContext(ctxlog.WithLogger(commandContext(cmd), logger))
	return nil
}

// commandContext tolerates commands that were never executed through the
// root, which is how the tests drive them.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
