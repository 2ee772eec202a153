// Package feed fetches RSS and Atom feeds and flattens them into Documents
// that carry exactly what ingestion needs: identifying links, titles and
// summaries.
package feed

import "context"

// Link relations understood by ingestion.
const (
	RelAlternate = "alternate"
	RelSelf      = "self"
	RelEnclosure = "enclosure"
	RelImage     = "image"
)

// Fetcher fetches and parses a feed.
type Fetcher interface {
	// Fetch retrieves the feed at url. Transport and HTTP status failures are
	// returned as *FetchError, malformed content as *ParseError.
	Fetch(ctx context.Context, url string) (*Document, error)
}

// Document is a parsed feed.
type Document struct {
	Title       string
	Description string

	// SelfLink is the feed's rel="self" link, when it declares one.
	SelfLink string

	// Entries are kept in feed order.
	Entries []Entry
}

// Entry is one item of a feed.
type Entry struct {
	ID      string
	Title   string
	Summary string
	Links   []Link
}

// Link is a typed link of an entry.
type Link struct {
	Href string
	Rel  string
}

// PrimaryLink returns the first link of the entry, whatever its relation.
func (e Entry) PrimaryLink() string {
	for _, l := range e.Links {
		if l.Href != "" {
			return l.Href
		}
	}
	return ""
}

// LinkWithRel returns the first link with the given relation.
func (e Entry) LinkWithRel(rel string) string {
	for _, l := range e.Links {
		if l.Rel == rel && l.Href != "" {
			return l.Href
		}
	}
	return ""
}
