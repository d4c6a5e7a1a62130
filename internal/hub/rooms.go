package hub

import "sync"

// RoomRegistry maps room names to their member connections. Rooms are created
// on first join and retained when they empty out; they are cheap and the
// service never deletes them.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// NewRoomRegistry returns an empty registry.
func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[string]map[*Client]struct{})}
}

// Join adds the client to the room, creating the room if needed.
func (r *RoomRegistry) Join(room string, c *Client) {
	r.mu.Lock()
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		r.rooms[room] = members
	}
	members[c] = struct{}{}
	r.mu.Unlock()
}

// Leave removes the client from the room. Leaving a room the client never
// joined is a no-op.
func (r *RoomRegistry) Leave(room string, c *Client) {
	r.mu.Lock()
	if members, ok := r.rooms[room]; ok {
		delete(members, c)
	}
	r.mu.Unlock()
}

// LeaveAll removes the client from every room it had joined, so a closed
// connection can never remain a broadcast target.
func (r *RoomRegistry) LeaveAll(c *Client) {
	r.mu.Lock()
	for _, members := range r.rooms {
		delete(members, c)
	}
	r.mu.Unlock()
}

// Members returns a snapshot of the room's member connections. A nonexistent
// room yields an empty slice.
func (r *RoomRegistry) Members(room string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[room]
	out := make([]*Client, 0, len(members))
	for c := range members {
		out = append(out, c)
	}
	return out
}
