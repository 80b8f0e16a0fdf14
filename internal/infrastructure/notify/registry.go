package notify

import "sync"

// teardownRegistry maps subscription keys to their detach callbacks.
type teardownRegistry struct {
	mu    sync.Mutex
	funcs map[string]func()
}

func newTeardownRegistry() *teardownRegistry {
	return &teardownRegistry{funcs: make(map[string]func())}
}

func (r *teardownRegistry) put(key string, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[key] = fn
}

// take removes and returns the callback for key. The second return is
// false when the key is unknown, which callers treat as a no-op.
func (r *teardownRegistry) take(key string) (func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn, ok := r.funcs[key]
	if ok {
		delete(r.funcs, key)
	}
	return fn, ok
}
