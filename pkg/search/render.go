package search

import (
	"fmt"
	"io"
	"strings"
)

// Message is the one-line summary of the result.
func (r *Result) Message() string {
	switch r.Outcome {
	case OutcomeRealmNotFound:
		return fmt.Sprintf("Could not find any realm matching '%s'", r.Realm)
	case OutcomeNoResults:
		return fmt.Sprintf("No memories found for search term: %s", r.Term)
	default:
		return fmt.Sprintf("Found %d result(s) for '%s':", r.Count, r.Term)
	}
}

// Render writes the result as text. A realm miss is written to errw, every
// other outcome to w.
func (r *Result) Render(w, errw io.Writer) error {
	if r.Outcome == OutcomeRealmNotFound {
		_, err := fmt.Fprintln(errw, r.Message())
		return err
	}

	var b strings.Builder
	b.WriteString(r.Message())
	b.WriteString("\n")

	if r.Outcome == OutcomeFound {
		b.WriteString("\n")
		for _, hit := range r.Hits {
			b.WriteString(hit.Title)
			b.WriteString("\n")

			b.WriteString(hit.RealmName)
			if hit.Link != "" {
				fmt.Fprintf(&b, " [%s]", hit.Link)
			}
			b.WriteString("\n")

			if r.ShowPreview && strings.TrimSpace(hit.Preview) != "" {
				b.WriteString(hit.Preview)
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
