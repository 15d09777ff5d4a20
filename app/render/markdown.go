package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/reddit-digest/app/digest"
)

// Renderer serializes a report into a markdown document. Output is
// byte-for-byte deterministic for identical input.
type Renderer struct {
	maxComments int
}

func NewRenderer(maxComments int) *Renderer {
	return &Renderer{maxComments: maxComments}
}

func (r *Renderer) Run(report *digest.Report) (string, error) {
	if report == nil {
		return "", fmt.Errorf("report is nil")
	}

	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Reddit Digest — Last %dh\n\n", report.WindowHours))
	buf.WriteString(fmt.Sprintf("Generated (UTC): %s\n\n", report.GeneratedAt.UTC().Format(time.RFC3339)))

	for _, section := range report.Sections {
		if err := r.writeSection(&buf, section); err != nil {
			return "", err
		}
	}

	if report.Reference != nil {
		r.writeReference(&buf, report.Reference)
	}

	return buf.String(), nil
}

func (r *Renderer) writeSection(buf *bytes.Buffer, section digest.Section) error {
	if section.Source == "" {
		return fmt.Errorf("section has no source name")
	}

	buf.WriteString("---\n")
	buf.WriteString(fmt.Sprintf("## r/%s — %d of %d posts\n\n",
		section.Source, len(section.Entries), section.TotalFetched))

	for i, entry := range section.Entries {
		if err := r.writeEntry(buf, i+1, entry); err != nil {
			return fmt.Errorf("section %q: %w", section.Source, err)
		}
	}

	return nil
}

func (r *Renderer) writeEntry(buf *bytes.Buffer, rank int, entry digest.Entry) error {
	post := entry.Post
	if post.ID == "" {
		return fmt.Errorf("post at rank %d has no id", rank)
	}

	if post.URL != "" {
		buf.WriteString(fmt.Sprintf("### %d. [%s](%s)\n", rank, escapeLinkText(post.Title), escapeLinkURL(post.URL)))
	} else {
		buf.WriteString(fmt.Sprintf("### %d. %s\n", rank, escapeLinkText(post.Title)))
	}

	buf.WriteString(fmt.Sprintf("- Score: %d | Comments: %d | Created (UTC): %s\n",
		post.Score, post.CommentCount, post.CreatedAt.UTC().Format(time.RFC3339)))
	if post.Permalink != "" {
		buf.WriteString(fmt.Sprintf("- Permalink: %s\n", post.Permalink))
	}
	buf.WriteString("\n")

	if entry.Excerpt != "" {
		buf.WriteString(fmt.Sprintf("> %s\n\n", escapeBody(entry.Excerpt)))
	}

	if len(entry.Links) > 0 {
		buf.WriteString("#### Links\n\n")
		for _, link := range entry.Links {
			buf.WriteString(fmt.Sprintf("- 🔗 %s\n", link.URL))
		}
		buf.WriteString("\n")
	}

	if len(entry.Comments) > 0 {
		buf.WriteString("#### Comments\n\n")
		limit := len(entry.Comments)
		if r.maxComments > 0 && limit > r.maxComments {
			limit = r.maxComments
		}
		for i := 0; i < limit; i++ {
			r.writeComment(buf, i+1, entry.Comments[i])
		}
		buf.WriteString("\n")
	}

	return nil
}

func (r *Renderer) writeComment(buf *bytes.Buffer, idx int, comment digest.Comment) {
	author := comment.Author
	if author == "" {
		author = "[deleted]"
	}
	buf.WriteString(fmt.Sprintf("%d. **u/%s** (score %d): %s\n",
		idx, escapeBody(author), comment.Score, escapeBody(comment.Body)))
}

func (r *Renderer) writeReference(buf *bytes.Buffer, ref *digest.Reference) {
	buf.WriteString("---\n## Reference\n\n")

	if len(ref.Stocks) > 0 {
		buf.WriteString("### Stock Prices\n\n")
		writeQuotes(buf, ref.Stocks)
	}

	if len(ref.Commodities) > 0 {
		buf.WriteString("### Commodity Prices\n\n")
		writeQuotes(buf, ref.Commodities)
	}

	if len(ref.FX) > 0 {
		buf.WriteString("### FX Rates\n\n")
		writeQuotes(buf, ref.FX)
	}

	if ref.Weather != nil {
		tempUnit, windUnit := "°C", "m/s"
		if ref.Weather.Units == "imperial" {
			tempUnit, windUnit = "°F", "mph"
		}
		buf.WriteString("### Weather\n\n")
		buf.WriteString(fmt.Sprintf("- Condition: %s\n", escapeBody(ref.Weather.Summary)))
		buf.WriteString(fmt.Sprintf("- Temp: %s%s\n", formatPrice(ref.Weather.Temp), tempUnit))
		buf.WriteString(fmt.Sprintf("- Humidity: %d%%\n", ref.Weather.Humidity))
		buf.WriteString(fmt.Sprintf("- Wind: %s %s\n", formatPrice(ref.Weather.WindSpeed), windUnit))
		buf.WriteString("\n")
	}
}

func writeQuotes(buf *bytes.Buffer, quotes []digest.Quote) {
	for _, quote := range quotes {
		if quote.Valid {
			buf.WriteString(fmt.Sprintf("- %s: %s\n", escapeBody(quote.Symbol), formatPrice(quote.Price)))
		} else {
			buf.WriteString(fmt.Sprintf("- %s: n/a\n", escapeBody(quote.Symbol)))
		}
	}
	buf.WriteString("\n")
}

func formatPrice(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}

var linkTextEscaper = strings.NewReplacer(
	`\`, `\\`,
	`[`, `\[`,
	`]`, `\]`,
)

// escapeLinkText neutralizes link delimiters inside the bracketed text of a
// markdown link and collapses newlines.
func escapeLinkText(s string) string {
	return linkTextEscaper.Replace(flatten(s))
}

// escapeLinkURL percent-encodes the characters that would terminate or split
// the parenthesized URL part of a markdown link.
func escapeLinkURL(s string) string {
	s = strings.ReplaceAll(s, "(", "%28")
	s = strings.ReplaceAll(s, ")", "%29")
	return strings.ReplaceAll(s, " ", "%20")
}

var bodyEscaper = strings.NewReplacer(
	`[`, `\[`,
	`]`, `\]`,
)

// escapeBody flattens newlines and neutralizes link delimiters in free text.
func escapeBody(s string) string {
	return bodyEscaper.Replace(flatten(s))
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
