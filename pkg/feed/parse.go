package feed

import (
	"bytes"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
)

// Parse turns raw feed bytes into a Document. Atom feeds are read with the
// Atom parser so link relations survive; everything else goes through
// gofeed's universal parser.
func Parse(sourceURL string, data []byte) (*Document, error) {
	if gofeed.DetectFeedType(bytes.NewReader(data)) == gofeed.FeedTypeAtom {
		af, err := (&atom.Parser{}).Parse(bytes.NewReader(data))
		if err != nil {
			return nil, &ParseError{URL: sourceURL, Err: err}
		}
		return fromAtom(af), nil
	}

	f, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{URL: sourceURL, Err: err}
	}
	return fromUniversal(f), nil
}

func fromAtom(af *atom.Feed) *Document {
	doc := &Document{
		Title:       strings.TrimSpace(af.Title),
		Description: strings.TrimSpace(af.Subtitle),
		Entries:     make([]Entry, 0, len(af.Entries)),
	}
	for _, l := range af.Links {
		if l.Rel == RelSelf {
			doc.SelfLink = l.Href
			break
		}
	}

	for _, e := range af.Entries {
		entry := Entry{
			ID:      strings.TrimSpace(e.ID),
			Title:   strings.TrimSpace(e.Title),
			Summary: strings.TrimSpace(e.Summary),
		}
		if entry.Summary == "" && e.Content != nil {
			entry.Summary = strings.TrimSpace(e.Content.Value)
		}
		for _, l := range e.Links {
			rel := l.Rel
			if rel == "" {
				rel = RelAlternate
			}
			entry.Links = append(entry.Links, Link{Href: l.Href, Rel: rel})
		}
		doc.Entries = append(doc.Entries, entry)
	}
	return doc
}

func fromUniversal(f *gofeed.Feed) *Document {
	doc := &Document{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		SelfLink:    f.FeedLink,
		Entries:     make([]Entry, 0, len(f.Items)),
	}

	for _, item := range f.Items {
		entry := Entry{
			ID:      strings.TrimSpace(item.GUID),
			Title:   strings.TrimSpace(item.Title),
			Summary: strings.TrimSpace(item.Description),
		}
		if entry.Summary == "" {
			entry.Summary = strings.TrimSpace(item.Content)
		}

		if item.Link != "" {
			entry.Links = append(entry.Links, Link{Href: item.Link, Rel: RelAlternate})
		}
		for _, href := range item.Links {
			if href != "" && href != item.Link {
				entry.Links = append(entry.Links, Link{Href: href, Rel: RelAlternate})
			}
		}
		for _, enc := range item.Enclosures {
			if enc != nil && enc.URL != "" {
				entry.Links = append(entry.Links, Link{Href: enc.URL, Rel: RelEnclosure})
			}
		}
		if item.Image != nil && item.Image.URL != "" {
			entry.Links = append(entry.Links, Link{Href: item.Image.URL, Rel: RelImage})
		}
		doc.Entries = append(doc.Entries, entry)
	}
	return doc
}
