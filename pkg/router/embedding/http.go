package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/r1pc0rd/SemanticRouter/pkg/router"
)

// HTTPProvider calls an external embedding endpoint (e.g. a Text Embeddings
// Inference server) over HTTP. It posts {"inputs": [text]} and expects a
// JSON response of [[float]] — a batch of embedding vectors, one per input.
type HTTPProvider struct {
	endpoint string
	dim      int
	client   *http.Client
}

// NewHTTPProvider creates an HTTPProvider targeting endpoint, expecting
// vectors of the given dimension, with the given request timeout.
func NewHTTPProvider(endpoint string, dimension int, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		endpoint: endpoint,
		dim:      dimension,
		client:   &http.Client{Timeout: timeout},
	}
}

type embedRequest struct {
	Inputs []string `json:"inputs"`
}

// Embed posts a single-element batch and returns its unit-normalized vector.
func (p *HTTPProvider) Embed(ctx context.Context, text string) (router.Vector, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", router.ErrEmbeddingUnavailable)
	}

	body, err := json.Marshal(embedRequest{Inputs: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %w", router.ErrEmbeddingUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", router.ErrEmbeddingUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", router.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()

	const maxResponseBytes = 16 << 20 // cap response size; embedding endpoints are not expected to stream large payloads
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", router.ErrEmbeddingUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: endpoint returned status %d: %s", router.ErrEmbeddingUnavailable, resp.StatusCode, raw)
	}

	var vectors [][]float32
	if err := json.Unmarshal(raw, &vectors); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", router.ErrEmbeddingUnavailable, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 vector, got %d", router.ErrEmbeddingUnavailable, len(vectors))
	}
	if len(vectors[0]) != p.dim {
		return nil, fmt.Errorf("%w: expected dimension %d, got %d", router.ErrEmbeddingUnavailable, p.dim, len(vectors[0]))
	}

	return normalize(vectors[0]), nil
}

// Dimension returns the fixed output dimension.
func (p *HTTPProvider) Dimension() int {
	return p.dim
}

// normalize defensively L2-normalizes v. The Tool Index assumes
// unit-normalized vectors (spec §3); this guards against providers that
// return unnormalized output.
func normalize(v []float32) router.Vector {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return router.Vector(v)
	}
	out := make(router.Vector, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
