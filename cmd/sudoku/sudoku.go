package sudoku

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/operator-framework/deppy-fd/pkg/cp"
	"github.com/operator-framework/deppy-fd/pkg/cp/alldiff"
	"github.com/operator-framework/deppy-fd/pkg/cp/search"
)

var ErrNoSolution = errors.New("no solution found")

// Board holds the digits of a sudoku grid, 0 for an empty cell.
type Board [9][9]int

// ParseBoard reads 81 cells in row order. Digits 1 to 9 are givens, '0' and
// '.' are empty cells, whitespace is ignored.
func ParseBoard(s string) (Board, error) {
	var b Board
	i := 0
	for _, r := range s {
		switch {
		case r == ' ' || r == '\n' || r == '\t' || r == '\r':
			continue
		case r == '.' || r == '0':
		case r >= '1' && r <= '9':
			if i < 81 {
				b[i/9][i%9] = int(r - '0')
			}
		default:
			return b, fmt.Errorf("invalid cell %q at position %d", r, i)
		}
		i++
	}
	if i != 81 {
		return b, fmt.Errorf("expected 81 cells, got %d", i)
	}
	return b, nil
}

func (b Board) String() string {
	var sb strings.Builder
	for _, row := range b {
		for col, v := range row {
			if col > 0 {
				sb.WriteByte(' ')
			}
			if v == 0 {
				sb.WriteByte(' ')
			} else {
				sb.WriteByte(byte('0' + v))
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Sudoku is the constraint model of a grid: one variable per cell and an
// AllDifferent constraint per row, column and box.
type Sudoku struct {
	net   *cp.Network
	cells [9][9]*cp.IntVar
}

func NewSudoku(givens Board, options ...cp.Option) (*Sudoku, error) {
	s := &Sudoku{net: cp.NewNetwork(options...)}
	for row := 0; row < 9; row++ {
		for col := 0; col < 9; col++ {
			x, err := s.net.NewEnumVar(fmt.Sprintf("r%dc%d", row+1, col+1), 1, 9)
			if err != nil {
				return nil, err
			}
			s.cells[row][col] = x
		}
	}

	var groups [][]*cp.IntVar
	for i := 0; i < 9; i++ {
		var row, col, box []*cp.IntVar
		for j := 0; j < 9; j++ {
			row = append(row, s.cells[i][j])
			col = append(col, s.cells[j][i])
			box = append(box, s.cells[3*(i/3)+j/3][3*(i%3)+j%3])
		}
		groups = append(groups, row, col, box)
	}
	for _, g := range groups {
		c, err := alldiff.New(g...)
		if err != nil {
			return nil, err
		}
		if err := s.net.Post(c); err != nil && !cp.IsContradiction(err) {
			return nil, err
		}
	}

	for row := 0; row < 9; row++ {
		for col := 0; col < 9; col++ {
			if v := givens[row][col]; v != 0 {
				// clashing givens leave the network failed and Solve finds
				// nothing
				if _, err := s.cells[row][col].Instantiate(v); err != nil && !cp.IsContradiction(err) {
					return nil, err
				}
			}
		}
	}
	return s, nil
}

// Solve returns the first completed board. It branches on the cell with the
// fewest candidates unless options say otherwise.
func (s *Sudoku) Solve(ctx context.Context, options ...search.Option) (Board, error) {
	var b Board
	options = append([]search.Option{search.WithVarSelector(search.FirstFail)}, options...)
	srch, err := search.New(s.net, options...)
	if err != nil {
		return b, err
	}
	sol, err := srch.Next(ctx)
	if err != nil {
		return b, err
	}
	if sol == nil {
		if srch.State() == search.StateStopped {
			return b, fmt.Errorf("search stopped: %s", srch.StopReason())
		}
		return b, ErrNoSolution
	}
	for row := 0; row < 9; row++ {
		for col := 0; col < 9; col++ {
			if b[row][col], err = sol.Value(s.cells[row][col]); err != nil {
				return b, err
			}
		}
	}
	return b, nil
}
