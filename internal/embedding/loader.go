package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
)

// GeminiLoader returns a Loader that initializes Genkit with the Google AI
// plugin and resolves the named embedder. Requires GEMINI_API_KEY.
func GeminiLoader(model string) Loader {
	return func(ctx context.Context) (ai.Embedder, error) {
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}

		embedder := googlegenai.GoogleAIEmbedder(g, model)
		if embedder == nil {
			return nil, fmt.Errorf("embedder %q not found for gemini provider", model)
		}
		return embedder, nil
	}
}

// OllamaLoader returns a Loader that initializes Genkit with the Ollama
// plugin and registers the named embedder. Ollama requires explicit
// registration (no auto-discovery); the embedder is keyed by server address.
func OllamaLoader(host, model string) Loader {
	return func(ctx context.Context) (ai.Embedder, error) {
		plugin := &ollama.Ollama{ServerAddress: host}
		g := genkit.Init(ctx, genkit.WithPlugins(plugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}

		plugin.DefineEmbedder(g, host, model, nil)
		embedder := ollama.Embedder(g, host)
		if embedder == nil {
			return nil, fmt.Errorf("embedder %q not found for ollama provider", model)
		}
		return embedder, nil
	}
}
