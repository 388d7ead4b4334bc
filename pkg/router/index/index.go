// Package index implements the Tool Index: per-tool embedding vectors and
// metadata, with top-K cosine ranking and a deterministic default subset
// selection (spec §4.2).
package index

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/r1pc0rd/SemanticRouter/pkg/router"
	"github.com/r1pc0rd/SemanticRouter/pkg/router/embedding"
)

// BuildEntry is one (public_name, embedding_text) pair to be embedded and
// stored. UpstreamID groups entries for default_subset; IsBuiltIn marks the
// search_tools entry, which default_subset never selects.
type BuildEntry struct {
	PublicName    string
	UpstreamID    string
	EmbeddingText string
	IsBuiltIn     bool
}

type storedEntry struct {
	publicName string
	upstreamID string
	isBuiltIn  bool
	vector     []float32
}

// Index holds embedding vectors for every catalog entry. It is built once
// (Build) and is read-only thereafter (spec §3: "The Index is built once
// after the catalog is finalized; it is read-only thereafter.").
type Index struct {
	entries []storedEntry
}

// RankedResult is one ranked hit from Rank.
type RankedResult struct {
	PublicName string
	Score      float64
}

// Filter restricts the candidate set Rank considers. Return true to include
// a given entry.
type Filter func(publicName, upstreamID string, isBuiltIn bool) bool

// ExcludeBuiltIn is a Filter that excludes the search_tools entry, used by
// the Search Service (spec §4.5: "Exclude the built-in search_tools from
// results").
func ExcludeBuiltIn(_ string, _ string, isBuiltIn bool) bool {
	return !isBuiltIn
}

// Build consumes entries, embeds each one's text concurrently via p, and
// stores unit-normalized vectors sorted by public_name for deterministic
// iteration order. It fails if any embedding call fails (spec §4.2).
func Build(ctx context.Context, entries []BuildEntry, p embedding.Provider) (*Index, error) {
	vectors := make([]router.Vector, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			v, err := p.Embed(gctx, e.EmbeddingText)
			if err != nil {
				return fmt.Errorf("%w: embedding %q: %w", router.ErrEmbeddingUnavailable, e.PublicName, err)
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stored := make([]storedEntry, len(entries))
	for i, e := range entries {
		stored[i] = storedEntry{
			publicName: e.PublicName,
			upstreamID: e.UpstreamID,
			isBuiltIn:  e.IsBuiltIn,
			vector:     l2Normalize(vectors[i]),
		}
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].publicName < stored[j].publicName })

	return &Index{entries: stored}, nil
}

// Size returns the number of indexed entries.
func (idx *Index) Size() int {
	return len(idx.entries)
}

// Rank returns the top-k public names by cosine similarity to queryVector,
// restricted to entries filter admits. Ties break by ascending lexicographic
// public_name (spec §4.2). If k exceeds the number of admitted entries, all
// of them are returned.
func (idx *Index) Rank(queryVector router.Vector, k int, filter Filter) []RankedResult {
	q := l2Normalize(queryVector)

	candidates := make([]RankedResult, 0, len(idx.entries))
	for _, e := range idx.entries {
		if filter != nil && !filter(e.publicName, e.upstreamID, e.isBuiltIn) {
			continue
		}
		candidates = append(candidates, RankedResult{
			PublicName: e.publicName,
			Score:      cosineSimilarity(q, e.vector),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].PublicName < candidates[j].PublicName
	})

	if k < len(candidates) {
		candidates = candidates[:k]
	}
	return candidates
}

// DefaultSubset returns a deterministic, diversity-oriented subset of size
// min(n, catalog_size), excluding the built-in search_tools entry.
//
// Policy (spec §4.2, literal): partition entries by upstream_id, then
// round-robin pick one per upstream in ascending sorted order of upstream_id,
// repeating until n is reached; within one upstream's turn, pick the public
// name not yet chosen with the smallest lexicographic order.
func (idx *Index) DefaultSubset(n int) []string {
	byUpstream := map[string][]string{}
	for _, e := range idx.entries {
		if e.isBuiltIn {
			continue
		}
		byUpstream[e.upstreamID] = append(byUpstream[e.upstreamID], e.publicName)
	}

	upstreamIDs := make([]string, 0, len(byUpstream))
	for id, names := range byUpstream {
		sort.Strings(names)
		byUpstream[id] = names
		upstreamIDs = append(upstreamIDs, id)
	}
	sort.Strings(upstreamIDs)

	cursor := make(map[string]int, len(upstreamIDs))
	result := make([]string, 0, n)

	for len(result) < n {
		pickedAny := false
		for _, id := range upstreamIDs {
			if len(result) >= n {
				break
			}
			names := byUpstream[id]
			i := cursor[id]
			if i >= len(names) {
				continue
			}
			result = append(result, names[i])
			cursor[id] = i + 1
			pickedAny = true
		}
		if !pickedAny {
			break
		}
	}

	return result
}
