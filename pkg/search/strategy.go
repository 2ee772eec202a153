package search

import (
	"fmt"
	"strings"
)

// Strategy selects how memories are matched.
type Strategy string

const (
	// StrategyText matches the term as a case-insensitive substring of the
	// title or content.
	StrategyText Strategy = "text"

	// StrategySemantic ranks memories by embedding distance to the term.
	StrategySemantic Strategy = "semantic"
)

// ParseStrategy accepts a strategy name or one of its aliases. An empty
// name yields fallback.
func ParseStrategy(name string, fallback Strategy) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return fallback, nil
	case "text", "lexical", "contains":
		return StrategyText, nil
	case "semantic", "ai", "vector":
		return StrategySemantic, nil
	default:
		return "", fmt.Errorf("unknown search type %q (available: text, semantic)", name)
	}
}
