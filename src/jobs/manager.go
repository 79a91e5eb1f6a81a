package jobs

import (
	"context"
	"fmt"
	"sync"
)

// Module is a background job with an explicit lifecycle.
type Module interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context)
}

// Manager runs a fixed set of modules: started in order, stopped in
// reverse. A failed start unwinds the modules already running.
type Manager struct {
	mu      sync.Mutex
	modules []Module
	running bool
}

func NewManager(mods ...Module) *Manager {
	return &Manager{modules: mods}
}

func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("jobs: manager already running")
	}
	for i, mod := range m.modules {
		if err := mod.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				m.modules[j].Stop(ctx)
			}
			return fmt.Errorf("jobs: start %s: %w", mod.Name(), err)
		}
	}
	m.running = true
	return nil
}

func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	for i := len(m.modules) - 1; i >= 0; i-- {
		m.modules[i].Stop(ctx)
	}
	m.running = false
}
