// Package customers holds the read-only debtor directory and the loaders
// that populate it.
package customers

import (
	"fmt"
	"sort"

	"golang.org/x/text/language"

	"voice-negotiator-go/internal/types"
)

// Directory is an immutable, ID-indexed set of customer profiles.
// It is safe for concurrent use because nothing mutates it after New.
type Directory struct {
	byID  map[int]types.CustomerProfile
	order []int
}

// New builds a directory. IDs must be positive and unique.
func New(profiles []types.CustomerProfile) (*Directory, error) {
	d := &Directory{byID: make(map[int]types.CustomerProfile, len(profiles))}
	for _, p := range profiles {
		if p.ID <= 0 {
			return nil, fmt.Errorf("customers: invalid id %d for %q", p.ID, p.Name)
		}
		if _, dup := d.byID[p.ID]; dup {
			return nil, fmt.Errorf("customers: duplicate id %d", p.ID)
		}
		d.byID[p.ID] = p.Clone()
		d.order = append(d.order, p.ID)
	}
	sort.Ints(d.order)
	return d, nil
}

// List returns one summary per customer, ordered by ID, with the debt
// rendered as "$1,000,000.00".
func (d *Directory) List() []types.CustomerSummary {
	out := make([]types.CustomerSummary, 0, len(d.order))
	for _, id := range d.order {
		p := d.byID[id]
		out = append(out, types.CustomerSummary{
			ID:         p.ID,
			Name:       p.Name,
			DebtAmount: FormatCurrency(p.DebtAmount, language.English, "$"),
		})
	}
	return out
}

// Get returns a copy of the profile. A miss is reported through ok, not an error.
func (d *Directory) Get(id int) (types.CustomerProfile, bool) {
	p, ok := d.byID[id]
	if !ok {
		return types.CustomerProfile{}, false
	}
	return p.Clone(), true
}

func (d *Directory) Len() int { return len(d.order) }
