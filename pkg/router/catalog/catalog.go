// Package catalog implements the Tool Catalog: aggregation of native tools
// from ready Upstream Sessions into namespaced, uniquely-named entries, plus
// the built-in search_tools entry (spec §4.4).
package catalog

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/r1pc0rd/SemanticRouter/pkg/router"
)

// Entry is one public catalog entry.
type Entry struct {
	PublicName          string
	NativeName          string
	Description         string
	InputSchema         json.RawMessage
	UpstreamID          string
	EmbeddingText       string
	IsBuiltIn           bool
	CategoryDescription string
}

// Catalog is the authoritative map from public name to (upstream, native
// name). It is immutable after Build (spec §3).
type Catalog struct {
	byPublicName map[string]Entry
	order        []string // public names in insertion order, for deterministic iteration
}

// SessionTools is the native tool list fetched from one ready Upstream
// Session, along with the descriptor that produced its namespace prefix.
type SessionTools struct {
	Descriptor router.UpstreamDescriptor
	Tools      []router.NativeTool
}

// Build aggregates native tools from ready sessions into a Catalog, computes
// each entry's public_name and embedding_text, and inserts the built-in
// search_tools entry. It returns router.ErrCatalogConflict if two entries
// collide on public_name (spec §4.4, §3: "fatal configuration error"). An
// empty input is not an error (spec §4.4: "Zero catalog entries after
// aggregation is not fatal").
func Build(sessions []SessionTools) (*Catalog, error) {
	c := &Catalog{byPublicName: map[string]Entry{}}

	for _, st := range sessions {
		prefix := st.Descriptor.EffectivePrefix()
		for _, t := range st.Tools {
			publicName := PublicName(prefix, t.Name)
			if _, exists := c.byPublicName[publicName]; exists {
				return nil, fmt.Errorf("%w: %q", router.ErrCatalogConflict, publicName)
			}
			entry := Entry{
				PublicName:          publicName,
				NativeName:          t.Name,
				Description:         t.Description,
				InputSchema:         t.InputSchema,
				UpstreamID:          st.Descriptor.ID,
				CategoryDescription: st.Descriptor.CategoryDescription,
			}
			entry.EmbeddingText = BuildEmbeddingText(t.Name, t.Description, t.InputSchema, st.Descriptor.CategoryDescription)
			c.byPublicName[publicName] = entry
			c.order = append(c.order, publicName)
		}
	}

	builtIn := Entry{
		PublicName:    BuiltInSearchToolsName,
		NativeName:    BuiltInSearchToolsName,
		Description:   "Search the available tools by natural-language query.",
		InputSchema:   searchToolsSchema,
		IsBuiltIn:     true,
		EmbeddingText: BuiltInSearchToolsEmbeddingText,
	}
	if _, exists := c.byPublicName[builtIn.PublicName]; exists {
		return nil, fmt.Errorf("%w: %q", router.ErrCatalogConflict, builtIn.PublicName)
	}
	c.byPublicName[builtIn.PublicName] = builtIn
	c.order = append(c.order, builtIn.PublicName)

	return c, nil
}

// searchToolsSchema is the fixed input schema for the built-in search_tools
// tool (spec §6).
var searchToolsSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string"},
    "context": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["query"]
}`)

// Lookup resolves a public name to its owning upstream id and native name.
// It returns false if name is not in the catalog, or if it is the built-in
// entry (which is never routed to an upstream). The name is first validated
// as a namespaced 'prefix.name' pair (spec §4.4: dispatch is "splitting,
// then lookup"); a name that doesn't parse can't be in the catalog either,
// so the map lookup below would reject it regardless, but doing so
// explicitly documents the two-step shape of dispatch.
func (c *Catalog) Lookup(publicName string) (upstreamID, nativeName string, ok bool) {
	if _, _, err := SplitPublicName(publicName); err != nil {
		return "", "", false
	}

	e, exists := c.byPublicName[publicName]
	if !exists || e.IsBuiltIn {
		return "", "", false
	}
	return e.UpstreamID, e.NativeName, true
}

// Describe returns the full entry for a public name, including the built-in
// tool.
func (c *Catalog) Describe(publicName string) (Entry, bool) {
	e, ok := c.byPublicName[publicName]
	return e, ok
}

// DescribeText implements search.Describer: it resolves a public name to
// its human-readable description only.
func (c *Catalog) DescribeText(publicName string) (string, bool) {
	e, ok := c.byPublicName[publicName]
	if !ok {
		return "", false
	}
	return e.Description, true
}

// Entries returns all catalog entries sorted by public_name, for building
// the Tool Index.
func (c *Catalog) Entries() []Entry {
	names := make([]string, 0, len(c.byPublicName))
	for n := range c.byPublicName {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]Entry, len(names))
	for i, n := range names {
		out[i] = c.byPublicName[n]
	}
	return out
}

// Size returns the number of entries, including the built-in tool.
func (c *Catalog) Size() int {
	return len(c.byPublicName)
}
