// Package config defines the router's static configuration: upstream
// descriptors, search parameters, and server timing, plus a YAML loader and
// validator (spec §3 expansion).
package config

import (
	"time"

	"github.com/r1pc0rd/SemanticRouter/pkg/router"
)

// UpstreamConfig describes one configured upstream MCP server.
type UpstreamConfig struct {
	ID                  string            `yaml:"id"`
	Transport           router.Transport  `yaml:"transport"`
	Command             string            `yaml:"command,omitempty"`
	Args                []string          `yaml:"args,omitempty"`
	Env                 map[string]string `yaml:"env,omitempty"`
	Endpoint            string            `yaml:"endpoint,omitempty"`
	Prefix              string            `yaml:"semantic_prefix,omitempty"`
	CategoryDescription string            `yaml:"category_description,omitempty"`
}

// SearchConfig configures the Embedding Provider and Search Service.
type SearchConfig struct {
	// Provider selects the Embedding Provider implementation: "http" or
	// "deterministic" (the latter is for local development and tests, never
	// production; spec §9).
	Provider string `yaml:"provider"`

	// HTTPEndpoint is the embedding service URL, required when Provider is
	// "http".
	HTTPEndpoint string `yaml:"httpEndpoint,omitempty"`

	// Dimension is the deterministic provider's output dimension.
	Dimension int `yaml:"dimension,omitempty"`

	// TopK overrides search.DefaultTopK when positive.
	TopK int `yaml:"topK,omitempty"`
}

// ServerConfig configures the Router Server's identity and timing.
type ServerConfig struct {
	Name             string        `yaml:"name"`
	Version          string        `yaml:"version"`
	StartupDeadline  time.Duration `yaml:"startupDeadline,omitempty"`
	CallDeadline     time.Duration `yaml:"callDeadline,omitempty"`
	ShutdownDeadline time.Duration `yaml:"shutdownDeadline,omitempty"`
}

// Config is the router's complete static configuration, loaded once at
// startup and never mutated (spec §3: "no dynamic re-listing").
type Config struct {
	Upstreams []UpstreamConfig `yaml:"upstreams"`
	Search    SearchConfig     `yaml:"search"`
	Server    ServerConfig     `yaml:"server"`
}

// Default timing values (spec §3 expansion).
const (
	DefaultStartupDeadline  = 60 * time.Second
	DefaultCallDeadline     = 30 * time.Second
	DefaultShutdownDeadline = 10 * time.Second
)

// ApplyDefaults fills zero-valued timing and identity fields.
func (c *Config) ApplyDefaults() {
	if c.Server.StartupDeadline <= 0 {
		c.Server.StartupDeadline = DefaultStartupDeadline
	}
	if c.Server.CallDeadline <= 0 {
		c.Server.CallDeadline = DefaultCallDeadline
	}
	if c.Server.ShutdownDeadline <= 0 {
		c.Server.ShutdownDeadline = DefaultShutdownDeadline
	}
	if c.Server.Name == "" {
		c.Server.Name = "semantic-router"
	}
	if c.Server.Version == "" {
		c.Server.Version = "0.1.0"
	}
	if c.Search.Dimension <= 0 {
		c.Search.Dimension = 256
	}
}

// Descriptors converts the configured upstreams into router.UpstreamDescriptor.
func (c *Config) Descriptors() []router.UpstreamDescriptor {
	out := make([]router.UpstreamDescriptor, len(c.Upstreams))
	for i, u := range c.Upstreams {
		out[i] = router.UpstreamDescriptor{
			ID:                  u.ID,
			Transport:           u.Transport,
			Command:             u.Command,
			Args:                u.Args,
			Endpoint:            u.Endpoint,
			Prefix:              u.Prefix,
			CategoryDescription: u.CategoryDescription,
		}
	}
	return out
}
