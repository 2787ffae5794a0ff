// Package registry maps component type names from configuration to the
// factories that build them.
package registry

import (
	"fmt"
	"sort"

	"eventflow/internal/config"
	"eventflow/internal/engine"
	"eventflow/internal/enrich"
)

type (
	FilterFactory    func(b *Builder, cfg config.FilterConfig) (engine.Filter, error)
	ProcessorFactory func(b *Builder, settings map[string]interface{}) (engine.Processor, error)
	SourceFactory    func(b *Builder, settings map[string]interface{}) (engine.Source, error)
	SinkFactory      func(b *Builder, name string, settings map[string]interface{}) (engine.Sink, error)
	ProviderFactory  func(b *Builder, name string, settings map[string]interface{}) (enrich.Provider, error)
)

// Registry is an explicit table of factories per component kind. It is
// filled at startup and read-only afterwards.
type Registry struct {
	filters    map[string]FilterFactory
	processors map[string]ProcessorFactory
	sources    map[string]SourceFactory
	sinks      map[string]SinkFactory
	providers  map[string]ProviderFactory
}

func New() *Registry {
	return &Registry{
		filters:    make(map[string]FilterFactory),
		processors: make(map[string]ProcessorFactory),
		sources:    make(map[string]SourceFactory),
		sinks:      make(map[string]SinkFactory),
		providers:  make(map[string]ProviderFactory),
	}
}

// Default returns a registry holding every built-in component.
func Default() *Registry {
	r := New()
	registerFilters(r)
	registerProcessors(r)
	registerSources(r)
	registerSinks(r)
	registerProviders(r)
	return r
}

func (r *Registry) RegisterFilter(typ string, f FilterFactory)       { r.filters[typ] = f }
func (r *Registry) RegisterProcessor(typ string, f ProcessorFactory) { r.processors[typ] = f }
func (r *Registry) RegisterSource(typ string, f SourceFactory)       { r.sources[typ] = f }
func (r *Registry) RegisterSink(typ string, f SinkFactory)           { r.sinks[typ] = f }
func (r *Registry) RegisterProvider(typ string, f ProviderFactory)   { r.providers[typ] = f }

// Types lists the registered type names per component kind.
func (r *Registry) Types() map[string][]string {
	return map[string][]string{
		"filters":    sortedKeys(r.filters),
		"processors": sortedKeys(r.processors),
		"sources":    sortedKeys(r.sources),
		"sinks":      sortedKeys(r.sinks),
		"providers":  sortedKeys(r.providers),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lookup[V any](m map[string]V, kind, typ string) (V, error) {
	f, ok := m[typ]
	if !ok {
		var zero V
		return zero, fmt.Errorf("unknown %s type %q", kind, typ)
	}
	return f, nil
}
