package mcp

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/aide/pkg/memory"
	"github.com/papercomputeco/aide/pkg/search"
)

var (
	searchToolName    = "search"
	searchDescription = "Search remembered feed entries. Use type \"text\" for substring matching on titles and content, or \"semantic\" (default) for meaning-based search. Optionally restrict to a realm by name."

	listRealmsToolName    = "list_realms"
	listRealmsDescription = "List every memory realm (one per learned feed) with the number of memories it holds."
)

// SearchInput represents the input arguments for the search tool.
type SearchInput struct {
	Term  string `json:"term" jsonschema:"the search term"`
	Type  string `json:"type,omitempty" jsonschema:"text or semantic (default: semantic)"`
	Realm string `json:"realm,omitempty" jsonschema:"realm name prefix or substring to restrict the search to"`
}

// SearchHit represents a single search result.
type SearchHit struct {
	Title    string   `json:"title"`
	Realm    string   `json:"realm"`
	Link     string   `json:"link,omitempty"`
	Preview  string   `json:"preview,omitempty"`
	Distance *float32 `json:"distance,omitempty"`
}

// SearchOutput represents the output of the search tool.
type SearchOutput struct {
	Message string      `json:"message"`
	Outcome string      `json:"outcome"`
	Count   int         `json:"count"`
	Hits    []SearchHit `json:"hits"`
}

// RealmSummary describes one realm.
type RealmSummary struct {
	ID       int64  `json:"id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Memories int    `json:"memories"`
}

// ListRealmsOutput represents the output of the list_realms tool.
type ListRealmsOutput struct {
	Realms []RealmSummary `json:"realms"`
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// jsonResult returns structured output alongside its JSON text for clients
// that only read text content.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	logger := s.config.Logger

	term := strings.TrimSpace(input.Term)
	if term == "" {
		return errorResult("term is required"), SearchOutput{}, nil
	}

	strategy, err := search.ParseStrategy(input.Type, search.StrategySemantic)
	if err != nil {
		return errorResult("%v", err), SearchOutput{}, nil
	}

	logger.Debug("MCP search request", "term", term, "strategy", strategy, "realm", input.Realm)

	res, err := s.config.Searcher.Search(ctx, search.Query{
		Term:     term,
		Strategy: strategy,
		Realm:    input.Realm,
	})
	if err != nil {
		logger.Error("MCP search failed", "error", err)
		return errorResult("Search failed: %v", err), SearchOutput{}, nil
	}

	output := SearchOutput{
		Message: res.Message(),
		Outcome: string(res.Outcome),
		Count:   res.Count,
		Hits:    make([]SearchHit, 0, len(res.Hits)),
	}
	for _, h := range res.Hits {
		output.Hits = append(output.Hits, SearchHit{
			Title:    h.Title,
			Realm:    h.RealmName,
			Link:     h.Link,
			Preview:  h.Preview,
			Distance: h.Distance,
		})
	}

	result, err := jsonResult(output)
	if err != nil {
		return errorResult("Failed to serialize results: %v", err), SearchOutput{}, nil
	}
	return result, output, nil
}

func (s *Server) handleListRealms(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, ListRealmsOutput, error) {
	realms, err := s.config.Store.AllRealms(ctx)
	if err != nil {
		return errorResult("Failed to list realms: %v", err), ListRealmsOutput{}, nil
	}

	slices.SortStableFunc(realms, func(a, b *memory.Realm) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	output := ListRealmsOutput{Realms: make([]RealmSummary, 0, len(realms))}
	for _, r := range realms {
		memories, err := s.config.Store.AllMemoriesForRealm(ctx, r.ID())
		if err != nil {
			return errorResult("Failed to list memories of %s: %v", r.Name, err), ListRealmsOutput{}, nil
		}
		output.Realms = append(output.Realms, RealmSummary{
			ID:       r.ID(),
			Key:      r.Key,
			Name:     r.Name,
			Memories: len(memories),
		})
	}

	result, err := jsonResult(output)
	if err != nil {
		return errorResult("Failed to serialize realms: %v", err), ListRealmsOutput{}, nil
	}
	return result, output, nil
}
