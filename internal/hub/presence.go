package hub

import "sync"

// PresenceTracker is the process-wide set of usernames with an open
// connection. Presence is one logical flag per username: any disconnect marks
// the user offline, even if another tab is still connected.
type PresenceTracker struct {
	mu     sync.RWMutex
	online map[string]struct{}
}

// NewPresenceTracker returns an empty tracker.
func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{online: make(map[string]struct{})}
}

// MarkOnline adds the username to the set. Idempotent.
func (p *PresenceTracker) MarkOnline(username string) {
	p.mu.Lock()
	p.online[username] = struct{}{}
	p.mu.Unlock()
}

// MarkOffline removes the username from the set. Idempotent.
func (p *PresenceTracker) MarkOffline(username string) {
	p.mu.Lock()
	delete(p.online, username)
	p.mu.Unlock()
}

// IsOnline reports whether the username currently counts as present.
func (p *PresenceTracker) IsOnline(username string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.online[username]
	return ok
}

// ActiveCount returns how many usernames are present.
func (p *PresenceTracker) ActiveCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.online)
}
