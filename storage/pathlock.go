package storage

import "sync"

// pathLocks is the process-wide map from canonical path to a mutex,
// preventing two Dict/Array handles from opening the same underlying file
// concurrently. The acquiring handle tracks whether it actually holds the
// lock and only unlocks in that case, avoiding a release-of-unlocked-lock
// fault on the close path.
var (
	pathLocksMu sync.Mutex
	pathLocks   = map[string]*sync.Mutex{}
)

func lockForPath(path string) *sync.Mutex {
	pathLocksMu.Lock()
	defer pathLocksMu.Unlock()
	m, ok := pathLocks[path]
	if !ok {
		m = &sync.Mutex{}
		pathLocks[path] = m
	}
	return m
}

// pathGuard is the acquisition-state-tracking handle returned by acquiring
// a path's lock: Release is a no-op unless acquirePath actually succeeded.
type pathGuard struct {
	mu       *sync.Mutex
	acquired bool
}

func acquirePath(path string) *pathGuard {
	m := lockForPath(path)
	m.Lock()
	return &pathGuard{mu: m, acquired: true}
}

// Release unlocks the path's mutex exactly once, and only if this guard
// actually holds it.
func (g *pathGuard) Release() {
	if !g.acquired {
		return
	}
	g.acquired = false
	g.mu.Unlock()
}
