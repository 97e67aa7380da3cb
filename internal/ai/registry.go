package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/suPer8Hu/dispensary/internal/config"
)

type ProviderFactory func(ctx context.Context, model string) (Provider, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

// NewDefaultRegistry registers the gemini and ollama providers from cfg.
func NewDefaultRegistry(cfg config.AIConfig) *Registry {
	reg := NewRegistry()
	reg.Register("gemini", cachedByModel(func(ctx context.Context, model string) (Provider, error) {
		if strings.TrimSpace(model) == "" {
			model = cfg.GeminiModel
		}
		// the client outlives the request that first builds it
		return NewGeminiProvider(context.WithoutCancel(ctx), cfg.GeminiAPIKey, model)
	}))
	reg.Register("ollama", func(ctx context.Context, model string) (Provider, error) {
		_ = ctx
		if strings.TrimSpace(model) == "" {
			model = cfg.OllamaModel
		}
		return NewOllamaProvider(cfg.OllamaBaseURL, model), nil
	})
	return reg
}

// cachedByModel builds each model's provider once. Failed builds are retried
// on the next call.
func cachedByModel(f ProviderFactory) ProviderFactory {
	var mu sync.Mutex
	built := make(map[string]Provider)
	return func(ctx context.Context, model string) (Provider, error) {
		mu.Lock()
		defer mu.Unlock()
		if p, ok := built[model]; ok {
			return p, nil
		}
		p, err := f(ctx, model)
		if err != nil {
			return nil, err
		}
		built[model] = p
		return p, nil
	}
}

func (r *Registry) Register(name string, f ProviderFactory) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Get(ctx context.Context, name string, model string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ai provider: %s", name)
	}
	return f(ctx, model)
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
