// Package embedding wraps the text-to-vector capability behind a Provider
// that owns model lifecycle and output normalization.
//
// The underlying model is expensive to initialize and is loaded at most once
// per process: the first caller starts the load and every concurrent caller
// awaits the same in-flight handle. Once loaded, the instance is reused for
// the remaining process lifetime (no eviction, no reload-on-error unless the
// caller explicitly calls Reset).
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"

	"github.com/synap0/synap/internal/knowledge"
)

// Loader produces the embedding model. It is invoked lazily, at most once
// per Provider lifetime (Reset permitting).
type Loader func(ctx context.Context) (ai.Embedder, error)

// loadState is the model lifecycle state machine. Transitions happen under
// Provider.mu so every concurrent caller observes one consistent machine
// instead of a race on a nullable field.
type loadState int

const (
	stateUnloaded loadState = iota
	stateLoading
	stateReady
	stateFailed
)

// Provider converts text into fixed-dimension, L2-normalized vectors.
//
// Provider is safe for concurrent use by multiple goroutines. The loaded
// model is process-wide and read-only after initialization.
type Provider struct {
	loader Loader
	dim    int
	opts   any // provider-specific per-request embed options (may be nil)
	logger *slog.Logger

	mu       sync.Mutex
	state    loadState
	loading  chan struct{} // closed when the in-flight load settles
	embedder ai.Embedder
	loadErr  error
}

// Option configures a Provider.
type Option func(*Provider)

// WithEmbedOptions sets provider-specific options forwarded on every embed
// request (e.g. *genai.EmbedContentConfig for Gemini output dimensionality).
func WithEmbedOptions(opts any) Option {
	return func(p *Provider) {
		p.opts = opts
	}
}

// New creates a Provider producing vectors of exactly dim dimensions.
func New(loader Loader, dim int, logger *slog.Logger, opts ...Option) (*Provider, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dim)
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Provider{
		loader: loader,
		dim:    dim,
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Dimension returns the fixed output dimension.
func (p *Provider) Dimension() int { return p.dim }

// Embed converts text into a normalized vector of exactly Dimension() values.
//
// Errors: knowledge.ErrEmptyInput for empty or whitespace-only text,
// knowledge.ErrModelUnavailable when the model cannot be loaded or fails to
// respond. Internal numeric representations never escape; the result is
// always a plain []float32.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text must not be empty or whitespace-only", knowledge.ErrEmptyInput)
	}

	embedder, err := p.instance(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: p.opts,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding text: %v", knowledge.ErrModelUnavailable, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", knowledge.ErrModelUnavailable)
	}

	vec := resp.Embeddings[0].Embedding
	if len(vec) != p.dim {
		return nil, fmt.Errorf("%w: model returned %d dimensions, want %d",
			knowledge.ErrDimensionMismatch, len(vec), p.dim)
	}

	out := make([]float32, len(vec))
	copy(out, vec)
	normalize(out)
	return out, nil
}

// instance returns the loaded model, loading it on first use. Concurrent
// first calls converge on a single load.
func (p *Provider) instance(ctx context.Context) (ai.Embedder, error) {
	for {
		p.mu.Lock()
		switch p.state {
		case stateReady:
			embedder := p.embedder
			p.mu.Unlock()
			return embedder, nil

		case stateFailed:
			err := p.loadErr
			p.mu.Unlock()
			return nil, fmt.Errorf("%w: %v", knowledge.ErrModelUnavailable, err)

		case stateLoading:
			done := p.loading
			p.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("waiting for model load: %w", ctx.Err())
			case <-done:
				// Re-enter the loop to observe the settled state.
			}

		case stateUnloaded:
			done := make(chan struct{})
			p.loading = done
			p.state = stateLoading
			p.mu.Unlock()

			p.logger.Debug("loading embedding model")
			embedder, err := p.loader(ctx)

			p.mu.Lock()
			switch {
			case err == nil:
				p.state = stateReady
				p.embedder = embedder
				p.logger.Debug("embedding model loaded")
			case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
				// The loading caller abandoned the request; the model itself
				// did not fail. Let the next caller retry the load.
				p.state = stateUnloaded
			default:
				p.state = stateFailed
				p.loadErr = err
				p.logger.Error("embedding model load failed", "error", err)
			}
			p.loading = nil
			close(done)
			p.mu.Unlock()

			if err != nil {
				return nil, fmt.Errorf("%w: %v", knowledge.ErrModelUnavailable, err)
			}
			return embedder, nil
		}
	}
}

// Reset discards a failed or loaded model so the next Embed call loads
// again. An in-flight load is left to settle on its own.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == stateLoading {
		return
	}
	p.state = stateUnloaded
	p.embedder = nil
	p.loadErr = nil
}

// normalize scales v in place to unit L2 norm so that cosine similarity
// downstream reduces to a dot product. Zero vectors are left untouched.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
