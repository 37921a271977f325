package indicator

import (
	"sync"

	"github.com/strategraph-lab/strategraph/internal/types"
	"github.com/strategraph-lab/strategraph/pkg/errors"
)

// Factory builds a fresh indicator instance. Indicators are stateful, so every
// graph node gets its own instance from the factory.
type Factory func() Indicator

// Registry manages all available indicator factories.
type Registry interface {
	Register(factory Factory) error
	Create(name types.IndicatorType) (Indicator, error)
	List() []types.IndicatorType
	Remove(name types.IndicatorType) error
}

// RegistryV1 manages all available indicator factories.
type RegistryV1 struct {
	factories map[types.IndicatorType]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty indicator registry.
func NewRegistry() Registry {
	return &RegistryV1{
		factories: make(map[types.IndicatorType]Factory),
		mu:        sync.RWMutex{},
	}
}

// NewDefaultRegistry creates a registry with every built-in indicator
// registered.
func NewDefaultRegistry() Registry {
	r := NewRegistry()

	// Registration of built-ins cannot collide.
	_ = r.Register(func() Indicator { return NewRSI() })
	_ = r.Register(func() Indicator { return NewSMA() })
	_ = r.Register(func() Indicator { return NewEMA() })
	_ = r.Register(func() Indicator { return NewBollingerBands() })
	_ = r.Register(func() Indicator { return NewMACD() })
	_ = r.Register(func() Indicator { return NewATR() })
	_ = r.Register(func() Indicator { return NewStochastic() })

	return r
}

// Register adds an indicator factory to the registry.
func (r *RegistryV1) Register(factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := factory().Name()
	if _, exists := r.factories[name]; exists {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator %s already registered", name)
	}

	r.factories[name] = factory

	return nil
}

// Create builds a fresh instance of the named indicator.
func (r *RegistryV1) Create(name types.IndicatorType) (Indicator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %s not found", name)
	}

	return factory(), nil
}

// List returns the names of all registered indicators.
func (r *RegistryV1) List() []types.IndicatorType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]types.IndicatorType, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	return names
}

// Remove removes an indicator factory from the registry.
func (r *RegistryV1) Remove(name types.IndicatorType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; !exists {
		return errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %s not found", name)
	}

	delete(r.factories, name)

	return nil
}
