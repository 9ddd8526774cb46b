package variant

import "sort"

// DefaultMaxNonFavorited is the retention cap applied when a policy is not
// configured explicitly.
const DefaultMaxNonFavorited = 10

// Policy bounds the number of non-favorited variants a pool may hold.
// Favorited variants never count against the cap and are never evicted.
type Policy struct {
	MaxNonFavorited int
}

// DefaultPolicy returns the standard retention policy.
func DefaultPolicy() Policy {
	return Policy{MaxNonFavorited: DefaultMaxNonFavorited}
}

// Enforce evicts the oldest non-favorited variants above the cap and returns
// the evicted variants. The surviving pool is rebuilt as favorited variants
// first, then non-favorited newest first. When the selected variant is
// evicted, the newest remaining variant becomes selected. Enforce is
// idempotent.
func (pol Policy) Enforce(p *Pool) []Variant {
	max := pol.MaxNonFavorited
	if max <= 0 {
		max = DefaultMaxNonFavorited
	}

	var favorited, rest []Variant
	for _, v := range p.Variants {
		if v.IsFavorited {
			favorited = append(favorited, v)
		} else {
			rest = append(rest, v)
		}
	}

	var evicted []Variant
	if len(rest) > max {
		sort.SliceStable(rest, func(i, j int) bool {
			return rest[i].CreatedAt.Before(rest[j].CreatedAt)
		})
		excess := len(rest) - max
		evicted = append(evicted, rest[:excess]...)
		rest = rest[excess:]
	}

	// Newest first among the survivors.
	sort.SliceStable(rest, func(i, j int) bool {
		return rest[j].CreatedAt.Before(rest[i].CreatedAt)
	})

	rebuilt := make([]Variant, 0, len(favorited)+len(rest))
	rebuilt = append(rebuilt, favorited...)
	rebuilt = append(rebuilt, rest...)
	p.Variants = rebuilt

	if p.SelectedID != "" {
		if _, ok := p.index(p.SelectedID); !ok {
			if len(p.Variants) > 0 {
				p.SelectedID = p.Variants[0].ID
			} else {
				p.SelectedID = ""
			}
		}
	}

	return evicted
}
