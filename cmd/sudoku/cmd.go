package sudoku

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/operator-framework/deppy-fd/internal/cli"
)

func NewSudokuCommand(env *cli.Env) *cobra.Command {
	var puzzle string
	cmd := &cobra.Command{
		Use:   "sudoku",
		Short: "Returns a solved sudoku board",
		Long: `Returns a solved sudoku board. Without --puzzle an empty grid is
completed. A puzzle is given as 81 cells in row order, using 1-9 for givens
and '.' or '0' for empty cells.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			givens := Board{}
			if puzzle != "" {
				var err error
				if givens, err = ParseBoard(puzzle); err != nil {
					return fmt.Errorf("invalid puzzle: %w", err)
				}
			}
			s, err := NewSudoku(givens, env.NetworkOptions()...)
			if err != nil {
				return err
			}
			board, err := s.Solve(cmd.Context(), env.SearchOptions()...)
			if errors.Is(err, ErrNoSolution) {
				fmt.Fprintln(cmd.OutOrStdout(), "no solution found")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), board)
			return nil
		},
	}
	cmd.Flags().StringVar(&puzzle, "puzzle", "", "81 cells in row order, '.' or '0' for empty")
	return cmd
}
