// Package router maps logical model names onto provider clients.
package router

import (
	"errors"
	"fmt"
	"sort"

	"ai-agent-be/internal/pkg/logger"
	"ai-agent-be/pkg/llm"
	"ai-agent-be/pkg/metrics"
)

type Binding struct {
	Name     string
	Provider llm.StreamingProvider
}

// Router is immutable once built and safe for concurrent use.
type Router struct {
	bindings    map[string]Binding
	defaultName string
	logger      logger.ILogger
}

var ErrDefaultMissing = errors.New("router: default binding missing")

func New(defaultName string, log logger.ILogger, bindings ...Binding) (*Router, error) {
	table := make(map[string]Binding, len(bindings))
	for _, b := range bindings {
		if b.Name == "" || b.Provider == nil {
			return nil, fmt.Errorf("router: binding %q is incomplete", b.Name)
		}
		if _, dup := table[b.Name]; dup {
			return nil, fmt.Errorf("router: duplicate binding %q", b.Name)
		}
		table[b.Name] = b
	}
	if _, ok := table[defaultName]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrDefaultMissing, defaultName)
	}
	return &Router{bindings: table, defaultName: defaultName, logger: log}, nil
}

// Resolve never fails: an empty or unknown name yields the default binding.
func (r *Router) Resolve(name string) Binding {
	b, _ := r.ResolveWithFallback(name)
	return b
}

// ResolveWithFallback also reports whether the default was substituted.
func (r *Router) ResolveWithFallback(name string) (Binding, bool) {
	if b, ok := r.bindings[name]; ok {
		return b, false
	}
	metrics.ModelFallbackTotal.Inc()
	if name != "" {
		r.logger.Info("ROUTER", "Unknown model, using default", map[string]interface{}{
			"requested": name,
			"default":   r.defaultName,
		})
	}
	return r.bindings[r.defaultName], true
}

func (r *Router) DefaultName() string { return r.defaultName }

func (r *Router) Names() []string {
	names := make([]string, 0, len(r.bindings))
	for name := range r.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
