package digest

import (
	"time"
)

// SourceSpec describes one subreddit to aggregate.
type SourceSpec struct {
	Name            string `yaml:"name"`
	Mode            string `yaml:"mode"`  // "new", "top" or "hot"
	WindowHours     int    `yaml:"hours"` // trailing window for post inclusion
	TopN            int    `yaml:"top_n"` // 0 = unbounded
	IncludeComments bool   `yaml:"comments"`
	ExtractContent  bool   `yaml:"extract_content"`
}

// Post is immutable once fetched.
type Post struct {
	ID           string
	Title        string
	URL          string
	Permalink    string
	Author       string
	Score        int // may be negative
	CommentCount int
	CreatedAt    time.Time
}

// Comment is a top-level comment on a post. AuthorCreatedAt is nil when the
// author's account metadata could not be determined.
type Comment struct {
	ID              string
	PostID          string
	Body            string
	Author          string
	AuthorCreatedAt *time.Time
	Score           int
}

// ExtractedLink is a URL found in a comment body, attributed to the first
// comment that introduced it.
type ExtractedLink struct {
	URL       string
	CommentID string
}

// Entry is one ranked post plus its optional enrichment.
type Entry struct {
	Post     Post
	Comments []Comment
	Links    []ExtractedLink
	Excerpt  string
}

// Section holds the ranked entries for one source.
type Section struct {
	Source       string
	TotalFetched int
	Entries      []Entry
	GeneratedAt  time.Time
}

// Quote is a single reference price. Valid is false when the lookup failed;
// such quotes still render (as unavailable) to keep the document shape stable.
type Quote struct {
	Symbol string
	Price  float64
	Valid  bool
}

// Weather is the current-conditions snapshot for the configured location.
type Weather struct {
	Summary   string
	Temp      float64
	Humidity  int
	WindSpeed float64
	Units     string // "metric" or "imperial"
}

// Reference is the optional non-forum data block rendered once per report.
type Reference struct {
	Stocks      []Quote
	Commodities []Quote
	FX          []Quote
	Weather     *Weather
}

// Report is the fully aggregated digest, ready for rendering.
type Report struct {
	Sections    []Section
	Reference   *Reference
	WindowHours int
	GeneratedAt time.Time
}
