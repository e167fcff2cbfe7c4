package llm

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// KeyStatus is the health of one credential at a point in time.
type KeyStatus struct {
	LastFailure time.Time
	Masked      string
	Index       int
	Healthy     bool
}

type keyState struct {
	lastFailure time.Time
	key         string
	healthy     bool
}

// KeyPool rotates a provider's credentials round-robin, skipping credentials
// that failed with an auth or quota error until their cooldown expires.
// Writers serialize on a mutex and publish an immutable snapshot; readers
// only load the snapshot.
type KeyPool struct {
	now      func() time.Time
	snap     atomic.Pointer[[]keyState]
	provider string
	cursor   atomic.Uint64
	cooldown time.Duration
	mu       sync.Mutex
}

// NewKeyPool creates a pool. A zero cooldown means DefaultCooldown.
func NewKeyPool(provider string, keys []string, cooldown time.Duration, now func() time.Time) *KeyPool {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if now == nil {
		now = time.Now
	}
	states := make([]keyState, len(keys))
	for i, k := range keys {
		states[i] = keyState{key: k, healthy: true}
	}
	p := &KeyPool{provider: provider, cooldown: cooldown, now: now}
	p.snap.Store(&states)
	return p
}

// Acquire returns the next eligible credential. A credential whose cooldown
// has expired is eligible again even before a success is recorded.
func (p *KeyPool) Acquire() (int, string, error) {
	states := *p.snap.Load()
	n := len(states)
	if n == 0 {
		return -1, "", fmt.Errorf("%s: %w", p.provider, ErrNoHealthyKeys)
	}

	now := p.now()
	start := int((p.cursor.Add(1) - 1) % uint64(n))
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if p.eligible(states[idx], now) {
			return idx, states[idx].key, nil
		}
	}
	return -1, "", fmt.Errorf("%s: all %d credentials cooling down: %w", p.provider, n, ErrNoHealthyKeys)
}

func (p *KeyPool) eligible(st keyState, now time.Time) bool {
	return st.healthy || now.Sub(st.lastFailure) >= p.cooldown
}

// MarkFailure puts a credential on cooldown.
func (p *KeyPool) MarkFailure(idx int) {
	p.update(idx, func(st *keyState) {
		st.healthy = false
		st.lastFailure = p.now()
	})
}

// MarkSuccess makes a credential healthy again.
func (p *KeyPool) MarkSuccess(idx int) {
	states := *p.snap.Load()
	if idx < 0 || idx >= len(states) || states[idx].healthy {
		return
	}
	p.update(idx, func(st *keyState) {
		st.healthy = true
	})
}

func (p *KeyPool) update(idx int, fn func(*keyState)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := *p.snap.Load()
	if idx < 0 || idx >= len(current) {
		return
	}
	next := make([]keyState, len(current))
	copy(next, current)
	fn(&next[idx])
	p.snap.Store(&next)
}

// Status reports the effective health of every credential.
func (p *KeyPool) Status() []KeyStatus {
	states := *p.snap.Load()
	now := p.now()
	out := make([]KeyStatus, len(states))
	for i, st := range states {
		out[i] = KeyStatus{
			Index:       i,
			Healthy:     p.eligible(st, now),
			LastFailure: st.lastFailure,
			Masked:      maskKey(st.key),
		}
	}
	return out
}

// Provider returns the provider class the pool belongs to.
func (p *KeyPool) Provider() string {
	return p.provider
}

func maskKey(k string) string {
	if len(k) <= 8 {
		return "****"
	}
	return k[:4] + "…" + k[len(k)-4:]
}

// KeyRegistry holds one KeyPool per provider class for the whole process.
type KeyRegistry struct {
	pools    map[string]*KeyPool
	now      func() time.Time
	cooldown time.Duration
	mu       sync.Mutex
}

// NewKeyRegistry creates an empty registry.
func NewKeyRegistry(cooldown time.Duration, now func() time.Time) *KeyRegistry {
	return &KeyRegistry{pools: make(map[string]*KeyPool), cooldown: cooldown, now: now}
}

var (
	defaultRegistry     *KeyRegistry
	defaultRegistryOnce sync.Once
)

// DefaultKeyRegistry returns the process-wide registry.
func DefaultKeyRegistry() *KeyRegistry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewKeyRegistry(DefaultCooldown, time.Now)
	})
	return defaultRegistry
}

// Pool returns the pool for p, creating it on first use.
func (r *KeyRegistry) Pool(p Provider) *KeyPool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pool, ok := r.pools[p.Name]; ok {
		return pool
	}
	pool := NewKeyPool(p.Name, p.Keys, r.cooldown, r.now)
	r.pools[p.Name] = pool
	return pool
}

// Pools returns every registered pool.
func (r *KeyRegistry) Pools() []*KeyPool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*KeyPool, 0, len(r.pools))
	for _, p := range r.pools {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].provider < out[j].provider })
	return out
}
