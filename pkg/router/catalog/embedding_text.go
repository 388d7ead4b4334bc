package catalog

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/r1pc0rd/SemanticRouter/pkg/router"
)

// schemaShape is the subset of a JSON Schema object this package inspects.
// Input schemas are otherwise opaque to the core (spec §3: "not interpreted
// by the core"); only the property names are read, to build embedding_text.
type schemaShape struct {
	Properties map[string]json.RawMessage `json:"properties"`
}

// BuildEmbeddingText constructs the deterministic text fed to the Embedding
// Provider for one catalog entry (spec §4.4, §3: "embedding_text is a
// deterministic function of (public_name, description, summarized input
// schema, category_description)").
//
// Template (frozen per DESIGN.md's resolution of the spec's open question):
// native name, then description if non-empty, then category_description if
// present, then "Parameters: " followed by every property name (not just
// required ones, and without rendered types) if the schema declares any
// properties — joined by " | ", omitting empty parts.
func BuildEmbeddingText(nativeName, description string, inputSchema []byte, categoryDescription string) string {
	parts := []string{nativeName}

	if strings.TrimSpace(description) != "" {
		parts = append(parts, description)
	}
	if strings.TrimSpace(categoryDescription) != "" {
		parts = append(parts, categoryDescription)
	}
	if names := parameterNames(inputSchema); len(names) > 0 {
		parts = append(parts, "Parameters: "+strings.Join(names, ", "))
	}

	return strings.Join(parts, " | ")
}

// parameterNames extracts sorted property names from a JSON Schema object.
// It returns nil if the schema is empty, malformed, or has no properties.
func parameterNames(inputSchema []byte) []string {
	if len(inputSchema) == 0 {
		return nil
	}
	var shape schemaShape
	if err := json.Unmarshal(inputSchema, &shape); err != nil {
		return nil
	}
	if len(shape.Properties) == 0 {
		return nil
	}
	names := make([]string, 0, len(shape.Properties))
	for name := range shape.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuiltInSearchToolsEmbeddingText is the fixed embedding_text for the
// built-in search_tools entry (spec §4.4: "Insert the built-in search_tools
// entry with a fixed schema and a fixed embedding_text").
const BuiltInSearchToolsEmbeddingText = "search_tools | Search the available tools by natural-language query | " +
	"Parameters: context, query"

// BuiltInSearchToolsName is the public name of the built-in search tool.
// It is never routed to an upstream (spec §3).
const BuiltInSearchToolsName = "search_tools"

// Vector is re-exported for callers that only import this package.
type Vector = router.Vector
