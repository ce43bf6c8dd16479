package root

import (
	"github.com/spf13/cobra"

	"github.com/operator-framework/deppy-fd/cmd/dimacs"
	"github.com/operator-framework/deppy-fd/cmd/sudoku"
	"github.com/operator-framework/deppy-fd/internal/cli"
)

// Version is set at build time.
var Version = "dev"

func NewRootCmd() *cobra.Command {
	env := &cli.Env{Version: Version}
	rootCmd := &cobra.Command{
		Use:   "deppy-fd",
		Short: "deppy-fd is a finite-domain constraint solver",
		Long: `A finite-domain constraint solver written in Go: reversible domains,
event-driven propagation and backtracking search.
For more information visit https://github.com/operator-framework/deppy-fd`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.Start(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return env.Finish(cmd.Context(), cmd.OutOrStdout())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&env.ConfigPath, "config", "", "path to a YAML configuration file")
	flags.BoolVar(&env.Trace, "trace", false, "print search spans and metrics to stdout")
	flags.BoolVar(&env.Metrics, "metrics", false, "print search metrics after solving")

	// add sub-commands
	rootCmd.AddCommand(dimacs.NewDimacsCommand(env))
	rootCmd.AddCommand(sudoku.NewSudokuCommand(env))

	return rootCmd
}
