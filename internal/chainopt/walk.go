package chainopt

import (
	"optionstrat/internal/chain"
	"optionstrat/internal/errors"
)

var errBudget = errors.New("candidate budget exhausted")

// Walk visits, depth first, every tuple taking one row from each level of
// rows with non-decreasing strikes, calling visit at most limit times. The
// tuple passed to visit is reused between calls. Walk returns errBudget
// when it stops at the limit with tuples left unvisited.
func Walk(rows [][]chain.OptionRow, limit int, visit func([]chain.OptionRow)) error {
	if len(rows) == 0 {
		return nil
	}
	tuple := make([]chain.OptionRow, len(rows))
	visited := 0

	var descend func(depth int) error
	descend = func(depth int) error {
		for _, row := range rows[depth] {
			if depth > 0 && row.Strike.LessThan(tuple[depth-1].Strike) {
				continue
			}
			tuple[depth] = row
			if depth < len(rows)-1 {
				if err := descend(depth + 1); err != nil {
					return err
				}
				continue
			}
			if visited == limit {
				return errBudget
			}
			visited++
			visit(tuple)
		}
		return nil
	}
	return descend(0)
}
