package coordinator

import (
	"context"
	"sync"
	"time"
)

type registryEntry struct {
	coord   *Coordinator
	lastUse time.Time
}

// Registry owns the live coordinators, keyed by caller ("user:<id>" or
// "device:<id>"). Idle entries are dropped by the janitor.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	idleTTL time.Duration
	now     func() time.Time
}

func NewRegistry(idleTTL time.Duration) *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

func (r *Registry) Get(key string) (*Coordinator, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	e.lastUse = r.now()
	return e.coord, true
}

// GetOrCreate returns the coordinator for key, building it with create when
// absent. create runs without the registry lock; if two callers race, the
// first stored coordinator wins.
func (r *Registry) GetOrCreate(ctx context.Context, key string, create func(ctx context.Context) (*Coordinator, error)) (*Coordinator, error) {
	if c, ok := r.Get(key); ok {
		return c, nil
	}

	c, err := create(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[key]; ok {
		e.lastUse = r.now()
		return e.coord, nil
	}
	r.entries[key] = &registryEntry{coord: c, lastUse: r.now()}
	return c, nil
}

// Put stores c under key, replacing any previous coordinator.
func (r *Registry) Put(key string, c *Coordinator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = &registryEntry{coord: c, lastUse: r.now()}
}

func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep drops entries idle for longer than the TTL and returns how many.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	n := 0
	for k, e := range r.entries {
		if now.Sub(e.lastUse) > r.idleTTL {
			delete(r.entries, k)
			n++
		}
	}
	return n
}

// StartJanitor sweeps every interval until ctx is done.
func (r *Registry) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	}()
}
