package digest

import (
	"errors"
	"fmt"
)

// ErrTotalFailure is returned when every configured source failed and no
// report could be produced.
var ErrTotalFailure = errors.New("all sources failed")

// ErrNoSources is returned when the orchestrator is handed an empty or
// invalid source list.
var ErrNoSources = errors.New("no sources configured")

// SourceFailure records a fatal per-source error. The failed source's section
// is omitted from the report while other sources proceed.
type SourceFailure struct {
	Source string
	Err    error
}

func (f SourceFailure) Error() string {
	return fmt.Sprintf("source %q: %v", f.Source, f.Err)
}

func (f SourceFailure) Unwrap() error {
	return f.Err
}
