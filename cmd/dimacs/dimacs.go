package dimacs

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Dimacs holds the clauses of a CNF problem described in DIMACS format.
// Literals are non-zero integers; -v is the negation of variable v.
// see: https://logic.pdmi.ras.ru/~basolver/dimacs.html
type Dimacs struct {
	numVariables int
	clauses      [][]int
}

func (d *Dimacs) NumVariables() int {
	return d.numVariables
}

func (d *Dimacs) Clauses() [][]int {
	return d.clauses
}

var (
	commentLine = regexp.MustCompile(`^c(\s.*)?$`)
	headerLine  = regexp.MustCompile(`^p\s+cnf\s+\d+\s+\d+$`)
	clauseLine  = regexp.MustCompile(`^(-?\d+\s+)*0$`)
)

// NewDimacs parses the DIMACS formatted stream afforded by dimacsReader.
func NewDimacs(dimacsReader io.Reader) (*Dimacs, error) {
	scanner := bufio.NewScanner(dimacsReader)

	seen := map[int]struct{}{}
	numVariables, numClauses := 0, 0
	var clauses [][]int
	header := false

	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || commentLine.MatchString(line):
			continue

		case headerLine.MatchString(line):
			if header {
				return nil, fmt.Errorf("line %d: duplicate header", lineNo)
			}
			header = true
			fields := strings.Fields(line)
			numVariables, _ = strconv.Atoi(fields[2])
			numClauses, _ = strconv.Atoi(fields[3])
			clauses = make([][]int, 0, numClauses)

		case clauseLine.MatchString(line):
			if !header {
				return nil, fmt.Errorf("invalid dimacs format: missing header 'p cnf <variables> <clauses>'")
			}
			fields := strings.Fields(line)
			clause, err := parseClause(fields[:len(fields)-1], numVariables)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid clause (%s): %w", lineNo, line, err)
			}
			for _, l := range clause {
				seen[abs(l)] = struct{}{}
			}
			clauses = append(clauses, clause)

		default:
			return nil, fmt.Errorf("line %d: invalid dimacs command: %s", lineNo, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dimacs data: %w", err)
	}

	if numVariables == 0 || numClauses == 0 {
		return nil, fmt.Errorf("invalid format: no variables or clauses found")
	}
	if len(clauses) != numClauses {
		return nil, fmt.Errorf("invalid format: header declares %d clauses, found %d", numClauses, len(clauses))
	}
	if len(seen) != numVariables {
		return nil, fmt.Errorf("invalid format: header declares %d variables, clauses use %d", numVariables, len(seen))
	}
	return &Dimacs{
		numVariables: numVariables,
		clauses:      clauses,
	}, nil
}

func parseClause(fields []string, numVariables int) ([]int, error) {
	clause := make([]int, 0, len(fields))
	for _, f := range fields {
		lit, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%s is not a number", f)
		}
		if lit == 0 {
			return nil, fmt.Errorf("0 is not a valid variable")
		}
		if abs(lit) > numVariables {
			return nil, fmt.Errorf("%s is not a valid variable", f)
		}
		clause = append(clause, lit)
	}
	return clause, nil
}

func abs(l int) int {
	if l < 0 {
		return -l
	}
	return l
}
