package indicator

import (
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-options/internal/types"
	"github.com/rxtech-lab/argo-options/pkg/errors"
)

// Constructor builds a fresh, unconfigured indicator instance.
type Constructor func() Indicator

// IndicatorRegistry manages all available indicators. Every GetIndicator call
// returns a new instance, so concurrent runs never share indicator config.
type IndicatorRegistry interface {
	RegisterIndicator(name types.IndicatorType, constructor Constructor) error
	GetIndicator(name types.IndicatorType) (Indicator, error)
	ListIndicators() []types.IndicatorType
	RemoveIndicator(name types.IndicatorType) error
}

// IndicatorRegistryV1 manages all available indicators.
type IndicatorRegistryV1 struct {
	constructors map[types.IndicatorType]Constructor
	mu           sync.RWMutex
}

// NewIndicatorRegistry creates a new empty indicator registry.
func NewIndicatorRegistry() IndicatorRegistry {
	return &IndicatorRegistryV1{
		constructors: make(map[types.IndicatorType]Constructor),
		mu:           sync.RWMutex{},
	}
}

// NewDefaultRegistry returns a registry with every built-in indicator.
func NewDefaultRegistry() IndicatorRegistry {
	registry := NewIndicatorRegistry()

	for _, constructor := range []Constructor{NewSupertrend, NewEMA, NewMA, NewRSI, NewMACD} {
		// names are distinct, registration cannot fail
		_ = registry.RegisterIndicator(constructor().Name(), constructor)
	}

	return registry
}

// RegisterIndicator adds an indicator constructor to the registry.
func (r *IndicatorRegistryV1) RegisterIndicator(name types.IndicatorType, constructor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[name]; exists {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "RegisterIndicator: indicator with name %s already registered", name)
	}

	r.constructors[name] = constructor

	return nil
}

// GetIndicator builds a new instance of the named indicator.
func (r *IndicatorRegistryV1) GetIndicator(name types.IndicatorType) (Indicator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	constructor, exists := r.constructors[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "GetIndicator: indicator with name %s not found", name)
	}

	return constructor(), nil
}

// ListIndicators returns the registered indicator names in sorted order.
func (r *IndicatorRegistryV1) ListIndicators() []types.IndicatorType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]types.IndicatorType, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	return names
}

// RemoveIndicator removes an indicator from the registry.
func (r *IndicatorRegistryV1) RemoveIndicator(name types.IndicatorType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[name]; !exists {
		return errors.Newf(errors.ErrCodeIndicatorNotFound, "RemoveIndicator: indicator with name %s not found", name)
	}

	delete(r.constructors, name)

	return nil
}
