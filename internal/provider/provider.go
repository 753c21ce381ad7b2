package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/peakfin/peakfin/internal/finance"
)

// Provider produces an advisory answer for a question the compliance gate
// has already allowed. Implementations must degrade rather than fail: a
// returned error is reserved for programming mistakes, not backend trouble,
// and callers treat any returned text as the answer.
type Provider interface {
	ProduceAdvice(ctx context.Context, question string, fc finance.Context) (string, error)
}

// Config selects and parameterizes the active provider. Kind is "remote"
// or "offline"; the zero value selects offline.
type Config struct {
	Kind      string
	BaseURL   string
	APIKey    string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// New builds the provider variant named by cfg.Kind. Selection happens
// exactly once at startup; the mediator never branches on the variant.
func New(cfg Config) (Provider, error) {
	switch cfg.Kind {
	case "", "offline":
		return NewOffline(), nil
	case "remote":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("remote advisor provider requires an API key")
		}
		if cfg.Model == "" {
			return nil, fmt.Errorf("remote advisor provider requires a model name")
		}
		return NewRemote(cfg), nil
	}
	return nil, fmt.Errorf("unknown advisor provider %q", cfg.Kind)
}
