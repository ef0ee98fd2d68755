package llm

import "sync"

// BaseProvider holds the model name behind a lock so SetModel is safe while
// requests are in flight.
type BaseProvider struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the configured model.
func (b *BaseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// SetModel replaces the configured model.
func (b *BaseProvider) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}
