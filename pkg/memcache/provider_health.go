// pkg/memcache/provider_health.go
package mem

import (
	"sync"
	"time"
)

// ProviderHealthStore tracks gateways that recently failed with an
// availability error so provider selection can route around them for a
// cooldown window.
type ProviderHealthStore interface {
	MarkUnavailable(provider string, cooldown time.Duration)

	// Available reports whether the provider is currently usable. Providers
	// never marked down are available by default.
	Available(provider string) bool
}

type downEntry struct {
	until time.Time
}

type ProviderHealth struct {
	mu   sync.RWMutex
	data map[string]downEntry
}

func NewProviderHealth() *ProviderHealth {
	return &ProviderHealth{
		data: make(map[string]downEntry),
	}
}

func (s *ProviderHealth) MarkUnavailable(provider string, cooldown time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[provider] = downEntry{
		until: time.Now().Add(cooldown),
	}
}

func (s *ProviderHealth) Available(provider string) bool {
	s.mu.RLock()
	e, ok := s.data[provider]
	s.mu.RUnlock()

	if !ok {
		return true
	}
	if time.Now().After(e.until) {
		s.mu.Lock()
		delete(s.data, provider) // cleanup expired
		s.mu.Unlock()
		return true
	}
	return false
}
