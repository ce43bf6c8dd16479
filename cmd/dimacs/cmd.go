package dimacs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/operator-framework/deppy-fd/internal/cli"
	"github.com/operator-framework/deppy-fd/internal/satcheck"
	"github.com/operator-framework/deppy-fd/pkg/cp/search"
)

var ErrNoSolution = errors.New("no solution found")

func NewDimacsCommand(env *cli.Env) *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "solve <path>",
		Short: "Solves a sat problem given in dimacs format",
		Long: `Solves a sat problem given in dimacs format. For instance:
c
c this is a comment
c header: p cnf <number of variable> <number of clauses> 
p cnf 2 2
c clauses end in zero, negative means 'not'
c 0 (zero) is not a valid literal
1 2 0
1 -2 0
c cnf: (1 or 2) and (1 and not 2)

Each clause becomes a table constraint over boolean variables. With
--verify the answer is checked against a SAT solver.
`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("file (%s) not found", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), env, args[0], verify)
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "cross-check the answer with a SAT solver")
	return cmd
}

func run(ctx context.Context, out io.Writer, env *cli.Env, path string, verify bool) error {
	dimacsFile, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening dimacs file (%s): %w", path, err)
	}
	defer dimacsFile.Close()

	d, err := NewDimacs(dimacsFile)
	if err != nil {
		return fmt.Errorf("error parsing dimacs file (%s): %w", path, err)
	}

	assignment, err := Solve(ctx, d, env)
	switch {
	case errors.Is(err, ErrNoSolution):
		fmt.Fprintln(out, "no solution found")
	case err != nil:
		return err
	default:
		fmt.Fprintln(out, "solution found:")
		for i, v := range assignment {
			fmt.Fprintf(out, "%d = %t\n", i+1, v)
		}
	}

	if !verify {
		return nil
	}
	backend := satcheck.Backend(env.SATBackend())
	if backend == "" {
		backend = satcheck.Gini
	}
	if err := Verify(d, assignment, backend); err != nil {
		return err
	}
	fmt.Fprintf(out, "verified with %s\n", backend)
	return nil
}

// Solve returns the truth value of every variable in the first solution of
// the CP model of d, or ErrNoSolution.
func Solve(ctx context.Context, d *Dimacs, env *cli.Env) ([]bool, error) {
	m, err := NewModel(d, env.NetworkOptions()...)
	if err != nil {
		return nil, err
	}
	s, err := search.New(m.Network, env.SearchOptions()...)
	if err != nil {
		return nil, err
	}
	sol, err := s.Next(ctx)
	if err != nil {
		return nil, err
	}
	if sol == nil {
		if s.State() == search.StateStopped {
			return nil, fmt.Errorf("search stopped: %s", s.StopReason())
		}
		return nil, ErrNoSolution
	}
	return m.Assignment(sol.Value)
}

// Verify checks the CP answer against the SAT backend: a nil assignment
// must mean the clauses are unsatisfiable, otherwise the assignment must
// satisfy every clause.
func Verify(d *Dimacs, assignment []bool, backend satcheck.Backend) error {
	res, err := satcheck.Check(backend, d.NumVariables(), d.Clauses())
	if err != nil {
		return err
	}
	if assignment == nil {
		if res.Satisfiable {
			return fmt.Errorf("verification failed: %s found a model the search missed", backend)
		}
		return nil
	}
	if !res.Satisfiable {
		return fmt.Errorf("verification failed: %s proved the clauses unsatisfiable", backend)
	}
	if !(satcheck.Result{Satisfiable: true, Model: assignment}).Holds(d.Clauses()) {
		return fmt.Errorf("verification failed: the assignment violates a clause")
	}
	return nil
}
