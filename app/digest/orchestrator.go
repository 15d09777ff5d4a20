package digest

import (
	"context"
	"log/slog"
	"sync"
)

// SourceClient retrieves posts and comments for a single source. Fetch
// failures that survive the client's own retry policy are fatal for that
// source only.
type SourceClient interface {
	// FetchPosts returns the posts for the spec's listing mode plus the total
	// number of posts scanned before filtering.
	FetchPosts(ctx context.Context, spec SourceSpec) ([]Post, int, error)
	// FetchComments returns the top-level comments of a post.
	FetchComments(ctx context.Context, post Post) ([]Comment, error)
}

// ExcerptFetcher produces a short readable excerpt of a post's target URL.
type ExcerptFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ReferenceProvider fetches the optional non-forum reference block. Lookups
// are best effort; a nil result omits the block from the report.
type ReferenceProvider interface {
	Fetch(ctx context.Context) *Reference
}

// Orchestrator drives the fetch-filter-enrich pipeline per source and
// aggregates the results into a single report.
type Orchestrator struct {
	client        SourceClient
	filterer      *Filterer
	enricher      *Enricher
	excerpts      ExcerptFetcher
	reference     ReferenceProvider
	clock         Clock
	workerCount   int
	thresholdDays int
}

func NewOrchestrator(client SourceClient, filterer *Filterer, enricher *Enricher,
	excerpts ExcerptFetcher, reference ReferenceProvider, clock Clock,
	workerCount, thresholdDays int) *Orchestrator {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Orchestrator{
		client:        client,
		filterer:      filterer,
		enricher:      enricher,
		excerpts:      excerpts,
		reference:     reference,
		clock:         clock,
		workerCount:   workerCount,
		thresholdDays: thresholdDays,
	}
}

// Run executes the pipeline for every spec. Sections appear in the report in
// spec order regardless of completion order. A failed source is recorded and
// omitted; if every source fails, no report is produced and ErrTotalFailure
// is returned. Cancelling the context aborts in-flight fetches and records
// the unfinished sources as failures.
func (o *Orchestrator) Run(ctx context.Context, specs []SourceSpec) (*Report, []SourceFailure, error) {
	if len(specs) == 0 {
		return nil, nil, ErrNoSources
	}
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, nil, ErrNoSources
		}
	}

	sections := make([]*Section, len(specs))
	errs := make([]error, len(specs))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < o.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					errs[idx] = err
					continue
				}
				section, err := o.processSource(ctx, specs[idx])
				if err != nil {
					errs[idx] = err
					continue
				}
				sections[idx] = section
			}
		}()
	}

	for idx := range specs {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	var failures []SourceFailure
	report := &Report{
		WindowHours: specs[0].WindowHours,
		GeneratedAt: o.clock.Now(),
	}
	for idx, spec := range specs {
		if errs[idx] != nil {
			failures = append(failures, SourceFailure{Source: spec.Name, Err: errs[idx]})
			continue
		}
		report.Sections = append(report.Sections, *sections[idx])
	}

	if len(failures) == len(specs) {
		return nil, failures, ErrTotalFailure
	}

	if o.reference != nil {
		report.Reference = o.reference.Fetch(ctx)
	}

	return report, failures, nil
}

func (o *Orchestrator) processSource(ctx context.Context, spec SourceSpec) (*Section, error) {
	posts, total, err := o.client.FetchPosts(ctx, spec)
	if err != nil {
		return nil, err
	}

	ranked := o.filterer.Run(posts, spec.WindowHours, spec.TopN)

	entries := make([]Entry, 0, len(ranked))
	for _, post := range ranked {
		entry := Entry{Post: post}

		if spec.IncludeComments {
			comments, err := o.client.FetchComments(ctx, post)
			if err != nil {
				return nil, err
			}
			entry.Comments, entry.Links = o.enricher.Run(comments, o.thresholdDays)
		}

		if spec.ExtractContent && o.excerpts != nil && post.URL != "" {
			excerpt, err := o.excerpts.Fetch(ctx, post.URL)
			if err != nil {
				slog.Debug("Excerpt extraction failed", "source", spec.Name, "post", post.ID, "url", post.URL, "error", err)
			} else {
				entry.Excerpt = excerpt
			}
		}

		entries = append(entries, entry)
	}

	slog.Info("Source processed",
		"source", spec.Name,
		"mode", spec.Mode,
		"total", total,
		"kept", len(entries))

	return &Section{
		Source:       spec.Name,
		TotalFetched: total,
		Entries:      entries,
		GeneratedAt:  o.clock.Now(),
	}, nil
}
