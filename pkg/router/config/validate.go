package config

import (
	"fmt"
	"strings"

	"github.com/r1pc0rd/SemanticRouter/pkg/router"
)

// Validator checks a loaded Config for structural correctness before the
// Orchestrator starts any upstream.
type Validator struct{}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns every problem found in cfg. A non-empty result means the
// process must not start.
func (v *Validator) Validate(cfg *Config) []error {
	var errs []error

	if len(cfg.Upstreams) == 0 {
		errs = append(errs, fmt.Errorf("config: at least one upstream is required"))
	}

	seenIDs := map[string]bool{}
	seenPrefixes := map[string]bool{}
	for i, u := range cfg.Upstreams {
		if u.ID == "" {
			errs = append(errs, fmt.Errorf("config: upstreams[%d]: id is required", i))
			continue
		}
		if strings.Contains(u.ID, ".") {
			errs = append(errs, fmt.Errorf("config: upstreams[%d] (%s): id must not contain %q", i, u.ID, "."))
		}
		if seenIDs[u.ID] {
			errs = append(errs, fmt.Errorf("config: duplicate upstream id %q", u.ID))
		}
		seenIDs[u.ID] = true

		prefix := u.Prefix
		if prefix == "" {
			prefix = u.ID
		}
		if seenPrefixes[prefix] {
			errs = append(errs, fmt.Errorf("config: duplicate effective prefix %q", prefix))
		}
		seenPrefixes[prefix] = true

		switch u.Transport {
		case router.TransportStdio:
			if u.Command == "" {
				errs = append(errs, fmt.Errorf("config: upstream %q: stdio transport requires command", u.ID))
			}
		case router.TransportHTTP, router.TransportSSE:
			if u.Endpoint == "" {
				errs = append(errs, fmt.Errorf("config: upstream %q: %s transport requires endpoint", u.ID, u.Transport))
			}
		default:
			errs = append(errs, fmt.Errorf("config: upstream %q: unknown transport %q", u.ID, u.Transport))
		}
	}

	switch cfg.Search.Provider {
	case "http":
		if cfg.Search.HTTPEndpoint == "" {
			errs = append(errs, fmt.Errorf("config: search.httpEndpoint is required for provider \"http\""))
		}
	case "deterministic":
	case "":
		errs = append(errs, fmt.Errorf("config: search.provider is required"))
	default:
		errs = append(errs, fmt.Errorf("config: search: unknown provider %q", cfg.Search.Provider))
	}

	return errs
}
