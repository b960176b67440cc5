package adapters

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/revroute/internal/billing/adapters/stripe"
	"github.com/smallbiznis/revroute/internal/billing/domain"
)

// Registry maps provider names to collector factories.
type Registry struct {
	factories map[string]domain.CollectorFactory
}

func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]domain.CollectorFactory)}
	r.register(stripe.NewFactory())
	return r
}

func (r *Registry) register(factory domain.CollectorFactory) {
	r.factories[strings.ToLower(factory.Provider())] = factory
}

func (r *Registry) New(provider string, cfg domain.AdapterConfig) (domain.Collector, error) {
	factory, ok := r.factories[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		return nil, fmt.Errorf("unknown billing provider %q", provider)
	}
	return factory.NewCollector(cfg)
}
