package embedding

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/synap0/synap/internal/knowledge"
	"github.com/synap0/synap/internal/log"
)

// mockEmbedder implements ai.Embedder for testing.
type mockEmbedder struct {
	embeddings []float32 // vector to return (default {0.1, 0.2, 0.3})
	embedErr   error
	returnNil  bool
	callCount  atomic.Int64

	mu        sync.Mutex
	lastInput string
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(api.Registry) {}

func (m *mockEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount.Add(1)
	if len(req.Input) > 0 && len(req.Input[0].Content) > 0 {
		m.mu.Lock()
		m.lastInput = req.Input[0].Content[0].Text
		m.mu.Unlock()
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.returnNil {
		return &ai.EmbedResponse{}, nil
	}

	embeddings := m.embeddings
	if embeddings == nil {
		embeddings = []float32{0.1, 0.2, 0.3}
	}
	return &ai.EmbedResponse{
		Embeddings: []*ai.Embedding{{Embedding: embeddings}},
	}, nil
}

// staticLoader returns a Loader yielding the given embedder while counting
// invocations.
func staticLoader(embedder ai.Embedder, calls *atomic.Int64, delay time.Duration) Loader {
	return func(ctx context.Context) (ai.Embedder, error) {
		calls.Add(1)
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return embedder, nil
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, 3, log.NewNop()); err == nil {
		t.Error("nil loader should be rejected")
	}
	var calls atomic.Int64
	if _, err := New(staticLoader(&mockEmbedder{}, &calls, 0), 0, log.NewNop()); err == nil {
		t.Error("non-positive dimension should be rejected")
	}
}

func TestProvider_Embed_NormalizesOutput(t *testing.T) {
	var calls atomic.Int64
	mock := &mockEmbedder{embeddings: []float32{3, 4, 0, 0}}
	p, err := New(staticLoader(mock, &calls, 0), 4, log.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	vec, err := p.Embed(context.Background(), "pythagorean content")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if len(vec) != 4 {
		t.Fatalf("expected 4 dimensions, got %d", len(vec))
	}

	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if math.Abs(norm-1.0) > 1e-4 {
		t.Errorf("expected unit L2 norm, got %f", norm)
	}
	if math.Abs(float64(vec[0])-0.6) > 1e-6 || math.Abs(float64(vec[1])-0.8) > 1e-6 {
		t.Errorf("unexpected normalized values: %v", vec)
	}
	if mock.lastInput != "pythagorean content" {
		t.Errorf("input text not forwarded, got %q", mock.lastInput)
	}
}

func TestProvider_Embed_EmptyInput(t *testing.T) {
	var calls atomic.Int64
	p, _ := New(staticLoader(&mockEmbedder{}, &calls, 0), 3, log.NewNop())

	for _, text := range []string{"", "   ", "\t\n "} {
		_, err := p.Embed(context.Background(), text)
		if !errors.Is(err, knowledge.ErrEmptyInput) {
			t.Errorf("Embed(%q): expected ErrEmptyInput, got %v", text, err)
		}
	}

	if calls.Load() != 0 {
		t.Error("empty input must not trigger a model load")
	}
}

func TestProvider_Embed_DimensionMismatch(t *testing.T) {
	var calls atomic.Int64
	mock := &mockEmbedder{embeddings: []float32{1, 2}}
	p, _ := New(staticLoader(mock, &calls, 0), 3, log.NewNop())

	_, err := p.Embed(context.Background(), "short vector")
	if !errors.Is(err, knowledge.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestProvider_Embed_ModelError(t *testing.T) {
	var calls atomic.Int64
	mock := &mockEmbedder{embedErr: errors.New("inference backend down")}
	p, _ := New(staticLoader(mock, &calls, 0), 3, log.NewNop())

	_, err := p.Embed(context.Background(), "some text")
	if !errors.Is(err, knowledge.ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestProvider_Embed_EmptyResponse(t *testing.T) {
	var calls atomic.Int64
	mock := &mockEmbedder{returnNil: true}
	p, _ := New(staticLoader(mock, &calls, 0), 3, log.NewNop())

	_, err := p.Embed(context.Background(), "some text")
	if !errors.Is(err, knowledge.ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestProvider_ConcurrentFirstCalls_SingleLoad(t *testing.T) {
	defer goleak.VerifyNone(t)

	var loads atomic.Int64
	mock := &mockEmbedder{embeddings: []float32{1, 0, 0}}
	p, _ := New(staticLoader(mock, &loads, 20*time.Millisecond), 3, log.NewNop())

	const callers = 50
	var g errgroup.Group
	for range callers {
		g.Go(func() error {
			_, err := p.Embed(context.Background(), "concurrent text")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent embed: %v", err)
	}
	if got := loads.Load(); got != 1 {
		t.Errorf("expected exactly 1 model load, got %d", got)
	}
}

func TestProvider_LoadFailureIsSticky(t *testing.T) {
	var loads atomic.Int64
	loadErr := errors.New("model weights missing")
	loader := func(ctx context.Context) (ai.Embedder, error) {
		loads.Add(1)
		return nil, loadErr
	}
	p, _ := New(loader, 3, log.NewNop())

	for range 3 {
		_, err := p.Embed(context.Background(), "text")
		if !errors.Is(err, knowledge.ErrModelUnavailable) {
			t.Fatalf("expected ErrModelUnavailable, got %v", err)
		}
	}
	if loads.Load() != 1 {
		t.Errorf("failed load must not be retried implicitly, got %d loads", loads.Load())
	}
}

func TestProvider_Reset_AllowsReload(t *testing.T) {
	var loads atomic.Int64
	mock := &mockEmbedder{embeddings: []float32{1, 0, 0}}
	loader := func(ctx context.Context) (ai.Embedder, error) {
		if loads.Add(1) == 1 {
			return nil, errors.New("transient init failure")
		}
		return mock, nil
	}
	p, _ := New(loader, 3, log.NewNop())

	if _, err := p.Embed(context.Background(), "text"); !errors.Is(err, knowledge.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}

	p.Reset()

	if _, err := p.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("Embed after Reset: %v", err)
	}
	if loads.Load() != 2 {
		t.Errorf("expected 2 loads after Reset, got %d", loads.Load())
	}
}

func TestProvider_CanceledLoadIsNotSticky(t *testing.T) {
	var loads atomic.Int64
	mock := &mockEmbedder{embeddings: []float32{1, 0, 0}}
	loader := func(ctx context.Context) (ai.Embedder, error) {
		if loads.Add(1) == 1 {
			return nil, context.Canceled
		}
		return mock, nil
	}
	p, _ := New(loader, 3, log.NewNop())

	if _, err := p.Embed(context.Background(), "text"); !errors.Is(err, knowledge.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable on canceled load, got %v", err)
	}

	// No Reset needed: an abandoned load leaves the provider unloaded.
	if _, err := p.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("Embed after abandoned load: %v", err)
	}
	if loads.Load() != 2 {
		t.Errorf("expected 2 loads, got %d", loads.Load())
	}
}

func TestProvider_Dimension(t *testing.T) {
	var calls atomic.Int64
	p, _ := New(staticLoader(&mockEmbedder{}, &calls, 0), 768, log.NewNop())
	if p.Dimension() != 768 {
		t.Errorf("Dimension() = %d, want 768", p.Dimension())
	}
}

func TestNormalize_ZeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	normalize(v)
	for i, x := range v {
		if x != 0 {
			t.Errorf("zero vector changed at %d: %f", i, x)
		}
	}
}
