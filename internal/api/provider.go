package api

import (
	"slices"
	"sync"

	"github.com/minpeter/ai-sdk-middleware/pkg/lm"
)

// ModelProvider resolves the model named in a request.
type ModelProvider interface {
	Model(id string) (lm.Model, error)
	ListModels() []string
}

// StaticProvider serves a fixed set of models keyed by model id. The first
// registered model answers requests that leave the model field empty.
type StaticProvider struct {
	mu     sync.RWMutex
	models map[string]lm.Model
	order  []string
}

func NewStaticProvider(models ...lm.Model) *StaticProvider {
	p := &StaticProvider{models: make(map[string]lm.Model, len(models))}
	for _, m := range models {
		p.Add(m.ModelID(), m)
	}
	return p
}

// Add registers m under id, replacing any model already registered there.
func (p *StaticProvider) Add(id string, m lm.Model) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.models[id]; !ok {
		p.order = append(p.order, id)
	}
	p.models[id] = m
}

func (p *StaticProvider) Model(id string) (lm.Model, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if id == "" {
		if len(p.order) == 0 {
			return nil, modelNotFoundError{id: id}
		}
		return p.models[p.order[0]], nil
	}
	m, ok := p.models[id]
	if !ok {
		return nil, modelNotFoundError{id: id}
	}
	return m, nil
}

func (p *StaticProvider) ListModels() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.order)
}
