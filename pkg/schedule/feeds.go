package schedule

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/papercomputeco/aide/pkg/ingest"
)

// FeedList is the on-disk format of the watched feeds file:
//
//	feeds:
//	  - url: https://go.dev/blog/feed.atom
//	  - url: https://example.com/rss
type FeedList struct {
	Feeds []FeedSource `yaml:"feeds"`
}

// FeedSource is one entry of a FeedList.
type FeedSource struct {
	URL string `yaml:"url"`

	// Name is informational only; the realm name always comes from the feed.
	Name string `yaml:"name,omitempty"`
}

// URLs returns the distinct, non-blank feed URLs in file order.
func (l *FeedList) URLs() []string {
	urls := make([]string, 0, len(l.Feeds))
	for _, f := range l.Feeds {
		urls = append(urls, f.URL)
	}
	return ingest.Dedupe(urls)
}

// LoadFeedList reads and parses the feeds file at path.
func LoadFeedList(path string) (*FeedList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("feeds file %s does not exist", path)
		}
		return nil, fmt.Errorf("reading feeds file: %w", err)
	}

	var list FeedList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing feeds file %s: %w", path, err)
	}
	return &list, nil
}

// WriteFeedList writes list to path as YAML.
func WriteFeedList(path string, list *FeedList) error {
	data, err := yaml.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding feeds file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing feeds file: %w", err)
	}
	return nil
}
