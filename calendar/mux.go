package calendar

import (
	"fmt"
	"sync"

	"github.com/guilherme-santos/calconnect"
)

type Mux struct {
	mu        sync.Mutex
	providers map[string]calconnect.Provider
}

func NewMux() *Mux {
	return &Mux{
		providers: make(map[string]calconnect.Provider),
	}
}

func (m *Mux) Get(platform string) (calconnect.Provider, error) {
	provider, ok := m.providers[platform]
	if !ok {
		return nil, fmt.Errorf("provider %q is not implemented", platform)
	}
	return provider, nil
}

func (m *Mux) Register(platform string, provider calconnect.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.providers[platform] = provider
}

func (m *Mux) Providers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	return names
}
