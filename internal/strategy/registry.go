package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/Autocal/internal/domain"
)

// Factory создаёт привязку стратегии для конкретного узла.
// Вызывается GraphBuilder'ом по одному разу на узел.
type Factory func(def domain.NodeDef) (Strategy, error)

// Registry — реестр фабрик стратегий.
//
// Позволяет описанию графа ссылаться на стратегии по имени.
// Потокобезопасен.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// DefaultRegistry создаёт реестр со встроенными стратегиями.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("simulated_linear", NewSimulatedLinear)
	return r
}

// Register регистрирует фабрику под именем.
// Существующая фабрика с тем же именем перезаписывается.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// New создаёт стратегию по имени для данного узла.
// Возвращает ErrStrategyNotFound, если имя не зарегистрировано.
func (r *Registry) New(name string, def domain.NodeDef) (Strategy, error) {
	r.mu.RLock()
	f, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotFound, name)
	}
	return f(def)
}

// Has проверяет, зарегистрирована ли стратегия.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[name]
	return exists
}

// Names возвращает отсортированный список зарегистрированных стратегий.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
