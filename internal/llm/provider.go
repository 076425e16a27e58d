package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/dgallion1/docqa/internal/config"
	"github.com/dgallion1/docqa/internal/metrics"
)

// Provider is an Answerer bound to one backend and default model.
type Provider interface {
	Answerer
	Name() string
	Model() string
}

// New builds the provider named by cfg.LLMProvider, wrapped with the
// configured rate limit.
func New(ctx context.Context, cfg config.Config) (Provider, error) {
	model := cfg.LLMModel
	if model == "" {
		model = config.DefaultModels[cfg.LLMProvider]
	}

	var p Provider
	switch cfg.LLMProvider {
	case ProviderOpenAI:
		p = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, model)
	case ProviderAnthropic:
		p = NewClaudeClient(cfg.AnthropicAPIKey, model)
	case ProviderGemini:
		g, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, model)
		if err != nil {
			return nil, err
		}
		p = g
	case ProviderOllama:
		o, err := NewOllamaClient(cfg.OllamaHost, model)
		if err != nil {
			return nil, err
		}
		p = o
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
	return WithRateLimit(p, cfg.LLMRateLimit, cfg.LLMRateBurst), nil
}

// Observed records the latency of every call in stats and in the
// Prometheus histogram.
type Observed struct {
	Provider
	stats *LLMStats
}

func WithStats(p Provider, stats *LLMStats) *Observed {
	return &Observed{Provider: p, stats: stats}
}

func (o *Observed) Ask(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, err := o.Provider.Ask(ctx, req)
	elapsed := time.Since(start)
	o.stats.Record(elapsed.Milliseconds(), err != nil)
	metrics.CaptureLLMCall(o.Name(), err == nil, elapsed)
	return out, err
}

// Snapshot returns the rolling latency window labelled with the provider.
func (o *Observed) Snapshot() StatsSnapshot {
	snap := o.stats.Snapshot()
	snap.Provider = o.Name()
	snap.Model = o.Model()
	return snap
}

// Close releases connections held by the underlying client, if it keeps any.
func (o *Observed) Close() {
	p := o.Provider
	if rl, ok := p.(*RateLimited); ok {
		p = rl.Provider
	}
	if c, ok := p.(interface{ Close() }); ok {
		c.Close()
	}
}
