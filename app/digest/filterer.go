package digest

import (
	"sort"
	"time"
)

// Filterer applies the time window and score ranking to a batch of posts
// fetched from one source.
type Filterer struct {
	clock Clock
}

func NewFilterer(clock Clock) *Filterer {
	return &Filterer{clock: clock}
}

// Run keeps posts created within the trailing window (inclusive lower bound),
// deduplicates by id keeping the first occurrence, sorts by the total order
// (score desc, created desc, id asc) and truncates to topN. topN = 0 means
// unbounded. The result is deterministic regardless of input order.
func (f *Filterer) Run(posts []Post, windowHours, topN int) []Post {
	cutoff := f.clock.Now().Add(-time.Duration(windowHours) * time.Hour)

	seen := make(map[string]bool, len(posts))
	kept := make([]Post, 0, len(posts))
	for _, p := range posts {
		if p.CreatedAt.Before(cutoff) {
			continue
		}
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		kept = append(kept, p)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		if !kept[i].CreatedAt.Equal(kept[j].CreatedAt) {
			return kept[i].CreatedAt.After(kept[j].CreatedAt)
		}
		return kept[i].ID < kept[j].ID
	})

	if topN > 0 && len(kept) > topN {
		kept = kept[:topN]
	}

	return kept
}
