package reconcile

import "sync"

// Op identifies a guarded reconciler operation
type Op int

const (
	OpRemove Op = iota
	OpInstall
	OpConfigFiles
)

// guard lets at most one invocation of each operation run at a time
type guard struct {
	mu      sync.Mutex
	running map[Op]bool
}

func newGuard() *guard {
	return &guard{running: make(map[Op]bool)}
}

// TryAcquire marks op as running and returns its release func, or false if it already is
func (g *guard) TryAcquire(op Op) (func(), bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running[op] {
		return nil, false
	}
	g.running[op] = true

	return func() {
		g.mu.Lock()
		delete(g.running, op)
		g.mu.Unlock()
	}, true
}
