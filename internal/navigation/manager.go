package navigation

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxNavigators bounds the number of devices a Manager tracks.
const DefaultMaxNavigators = 10000

// Manager keeps one Navigator per device. The least recently used navigator is
// dropped, and its session stopped, once the limit is reached.
type Manager struct {
	cfg NavigatorConfig

	mu         sync.Mutex
	navigators *lru.Cache[string, *Navigator]
}

// NewManager creates a manager holding at most maxNavigators navigators
// (DefaultMaxNavigators when non-positive).
func NewManager(cfg NavigatorConfig, maxNavigators int) *Manager {
	if maxNavigators <= 0 {
		maxNavigators = DefaultMaxNavigators
	}

	navigators, _ := lru.NewWithEvict[string, *Navigator](maxNavigators, func(_ string, n *Navigator) {
		_ = n.Stop()
	})

	return &Manager{cfg: cfg, navigators: navigators}
}

// For returns the navigator of deviceID, creating it on first use.
func (m *Manager) For(deviceID string) *Navigator {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n, ok := m.navigators.Get(deviceID); ok {
		return n
	}
	n := NewNavigator(m.cfg)
	m.navigators.Add(deviceID, n)
	return n
}

// Len returns the number of tracked navigators.
func (m *Manager) Len() int {
	return m.navigators.Len()
}
