// Package search implements the Search Service: builds a query vector from
// query + optional context, asks the Tool Index for top-K, and formats
// results (spec §4.5).
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/r1pc0rd/SemanticRouter/pkg/router"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/embedding"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/index"
)

// DefaultTopK is K when the caller does not override it (spec §4.5).
const DefaultTopK = 10

// Result is one ranked hit returned by Search.
type Result struct {
	PublicName  string  `json:"name"`
	Description string  `json:"description"`
	Similarity  float64 `json:"similarity"`
}

// Describer resolves a public name to its description, for formatting
// results. Satisfied by *catalog.Catalog.
type Describer interface {
	DescribeText(publicName string) (description string, ok bool)
}

// Service is the Search Service.
type Service struct {
	provider  embedding.Provider
	idx       *index.Index
	describer Describer
	topK      int
}

// New creates a Search Service over idx, embedding queries with provider and
// resolving descriptions via describer. topK <= 0 uses DefaultTopK.
func New(provider embedding.Provider, idx *index.Index, describer Describer, topK int) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{provider: provider, idx: idx, describer: describer, topK: topK}
}

// Search runs search_tools(query, context?) (spec §4.5). query must be
// non-empty or InvalidParams is returned. A failure to embed the query
// surfaces as SearchUnavailable.
func (s *Service) Search(ctx context.Context, query string, queryContext []string) ([]Result, *router.WireError) {
	if strings.TrimSpace(query) == "" {
		return nil, router.NewInvalidParams("search_tools", "query must be a non-empty string")
	}

	if s.idx == nil || s.idx.Size() == 0 {
		return []Result{}, nil
	}

	combined := buildQueryText(query, queryContext)

	vec, err := s.provider.Embed(ctx, combined)
	if err != nil {
		return nil, router.NewSearchUnavailable(fmt.Sprintf("embedding failed: %v", err))
	}

	ranked := s.idx.Rank(vec, s.topK, index.ExcludeBuiltIn)

	results := make([]Result, len(ranked))
	for i, r := range ranked {
		desc := ""
		if s.describer != nil {
			desc, _ = s.describer.DescribeText(r.PublicName)
		}
		results[i] = Result{PublicName: r.PublicName, Description: desc, Similarity: r.Score}
	}
	return results, nil
}

// buildQueryText concatenates query with each context entry, joined by a
// line separator, in the given order (spec §4.5).
func buildQueryText(query string, queryContext []string) string {
	if len(queryContext) == 0 {
		return query
	}
	parts := append([]string{query}, queryContext...)
	return strings.Join(parts, "\n")
}
