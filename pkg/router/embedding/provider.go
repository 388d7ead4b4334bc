// Package embedding implements the Embedding Provider contract: an opaque
// function mapping text to a fixed-dimension, unit-normalized vector.
//
// The core depends only on the Provider interface (see spec §4.1); this
// package supplies two concrete implementations.
package embedding

import (
	"context"

	"github.com/r1pc0rd/SemanticRouter/pkg/router"
)

// Provider embeds a single piece of text into a fixed-dimension vector.
// Implementations must be safe for concurrent use. Dimension() must return
// the same value for the lifetime of the process.
type Provider interface {
	// Embed returns a unit-normalized vector for text. An empty text is an
	// invalid call; implementations return an error in that case.
	Embed(ctx context.Context, text string) (router.Vector, error)

	// Dimension returns the fixed output dimension D.
	Dimension() int
}
