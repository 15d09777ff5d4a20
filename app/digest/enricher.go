package digest

import (
	"regexp"
	"sort"
	"time"
)

// urlPattern is the fixed matching grammar for links in comment bodies.
// Reachability is never validated.
var urlPattern = regexp.MustCompile(`https?://\S+`)

// Enricher filters comments by author account age and extracts the URLs
// referenced in the surviving bodies.
type Enricher struct {
	clock Clock
}

func NewEnricher(clock Clock) *Enricher {
	return &Enricher{clock: clock}
}

// Run discards comments whose author account is younger than thresholdDays.
// An account created exactly thresholdDays ago passes. Comments with unknown
// author metadata are excluded rather than guessed at, unless the threshold
// is 0, which disables the filter entirely. Surviving comments are returned
// in the total order (score desc, id asc); links are deduplicated by exact
// URL in first-seen order and attributed to the comment that introduced them.
func (e *Enricher) Run(comments []Comment, thresholdDays int) ([]Comment, []ExtractedLink) {
	now := e.clock.Now()

	kept := make([]Comment, 0, len(comments))
	for _, c := range comments {
		if thresholdDays > 0 {
			if c.AuthorCreatedAt == nil {
				continue
			}
			age := now.Sub(*c.AuthorCreatedAt)
			if age < time.Duration(thresholdDays)*24*time.Hour {
				continue
			}
		}
		kept = append(kept, c)
	}

	// Links are attributed before ranking so "first seen" follows the order
	// the comments arrived in.
	seen := make(map[string]bool)
	var links []ExtractedLink
	for _, c := range kept {
		for _, url := range urlPattern.FindAllString(c.Body, -1) {
			if seen[url] {
				continue
			}
			seen[url] = true
			links = append(links, ExtractedLink{URL: url, CommentID: c.ID})
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].ID < kept[j].ID
	})

	return kept, links
}
