// Package hub implements the real-time core of the chat service: presence
// tracking, room membership, and event fan-out over websocket connections.
// All shared state is owned by a single run loop; connection goroutines only
// talk to it through channels.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"salachat/internal/models"
)

const userListTimeout = 5 * time.Second

// UsernameLister supplies the full set of known usernames, ordered
// alphabetically. The account service implements it.
type UsernameLister interface {
	ListUsernames(ctx context.Context) ([]string, error)
}

// frame is one inbound client event paired with its origin connection.
type frame struct {
	client *Client
	event  models.ClientEvent
}

// imageRelay carries an image announcement from the HTTP upload path into the
// run loop.
type imageRelay struct {
	username string
	room     string
	url      string
}

// Hub owns presence, room membership, and the set of open connections, and
// fans events out to them. Mutations happen only inside Run.
type Hub struct {
	users       UsernameLister
	presence    *PresenceTracker
	rooms       *RoomRegistry
	defaultRoom string

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	inbound    chan frame
	images     chan imageRelay

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a hub over the given username source. defaultRoom is used
// when a client event omits the room.
func NewHub(users UsernameLister, defaultRoom string) *Hub {
	if defaultRoom == "" {
		defaultRoom = "geral"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		users:       users,
		presence:    NewPresenceTracker(),
		rooms:       NewRoomRegistry(),
		defaultRoom: defaultRoom,
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		inbound:     make(chan frame),
		images:      make(chan imageRelay),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Register hands a freshly upgraded connection to the hub. The hub marks the
// user online, broadcasts the refreshed user list, and starts the pumps.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.ctx.Done():
	}
}

// RelayImage announces an uploaded image to the room on behalf of username.
// Called from the HTTP upload handler after the file is stored.
func (h *Hub) RelayImage(username, room, url string) {
	if room == "" {
		room = h.defaultRoom
	}
	select {
	case h.images <- imageRelay{username: username, room: room, url: url}:
	case <-h.ctx.Done():
	}
}

// DefaultRoom returns the room used when clients do not name one.
func (h *Hub) DefaultRoom() string {
	return h.defaultRoom
}

// UserStatuses computes the current user list view: every known username
// tagged active or inactive. Safe to call from any goroutine.
func (h *Hub) UserStatuses(ctx context.Context) ([]models.UserStatus, error) {
	usernames, err := h.users.ListUsernames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list usernames: %w", err)
	}
	statuses := make([]models.UserStatus, 0, len(usernames))
	for _, name := range usernames {
		status := models.StatusInactive
		if h.presence.IsOnline(name) {
			status = models.StatusActive
		}
		statuses = append(statuses, models.UserStatus{Name: name, Status: status})
	}
	return statuses, nil
}

// Run is the hub's event loop. It must run in its own goroutine and is the
// only place presence, rooms, and the client set are mutated.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.closeAllClients()
			return

		case c := <-h.register:
			if c == nil {
				continue
			}
			h.clients[c] = true
			h.presence.MarkOnline(c.username)
			log.Printf("hub: %s connected, %d clients", c.username, len(h.clients))
			h.broadcastUserList()
			if c.conn != nil {
				h.wg.Add(2)
				go func() {
					defer h.wg.Done()
					c.writePump()
				}()
				go func() {
					defer h.wg.Done()
					c.readPump()
				}()
			}

		case c := <-h.unregister:
			if h.clients[c] {
				h.dropClient(c)
				log.Printf("hub: %s disconnected, %d clients", c.username, len(h.clients))
				h.broadcastUserList()
			}

		case f := <-h.inbound:
			h.handleEvent(f.client, f.event)

		case img := <-h.images:
			h.sendToRoom(img.room, models.ServerEvent{
				Event: models.EventReceiveMessage,
				User:  img.username,
				Type:  models.MessageTypeImage,
				URL:   img.url,
			})
		}
	}
}

func (h *Hub) handleEvent(c *Client, ev models.ClientEvent) {
	if !h.clients[c] {
		return
	}
	room := ev.Room
	if room == "" {
		room = h.defaultRoom
	}
	switch ev.Event {
	case models.EventJoin:
		h.rooms.Join(room, c)
		h.sendToRoom(room, models.ServerEvent{
			Event: models.EventStatus,
			Msg:   fmt.Sprintf("%s entrou na sala.", c.username),
		})
	case models.EventSendMessage:
		h.sendToRoom(room, models.ServerEvent{
			Event: models.EventReceiveMessage,
			User:  c.username,
			Type:  models.MessageTypeText,
			Msg:   ev.Msg,
		})
	default:
		debugLog("hub: ignoring unknown event %q from %s", ev.Event, c.username)
	}
}

// broadcastUserList recomputes the status view over all known usernames and
// delivers it to every open connection. Runs after every presence change.
func (h *Hub) broadcastUserList() {
	ctx, cancel := context.WithTimeout(context.Background(), userListTimeout)
	defer cancel()
	statuses, err := h.UserStatuses(ctx)
	if err != nil {
		log.Printf("hub: user list: %v", err)
		return
	}
	h.sendGlobal(models.ServerEvent{Event: models.EventUpdateUserList, Users: statuses})
}

func (h *Hub) sendToRoom(room string, ev models.ServerEvent) {
	h.fanOut(h.rooms.Members(room), ev)
}

func (h *Hub) sendGlobal(ev models.ServerEvent) {
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.fanOut(targets, ev)
}

// fanOut delivers the event to every target without blocking. A client whose
// send buffer is full is dropped so one stalled connection never delays the
// rest; the drop counts as a disconnect and refreshes the user list.
func (h *Hub) fanOut(targets []*Client, ev models.ServerEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("hub: marshal %s event: %v", ev.Event, err)
		return
	}
	var failed []*Client
	for _, c := range targets {
		if !c.trySend(payload) {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		if h.clients[c] {
			log.Printf("hub: dropping %s, send buffer full", c.username)
			h.dropClient(c)
		}
	}
	if len(failed) > 0 {
		h.broadcastUserList()
	}
}

// dropClient performs the full disconnect cleanup: room membership, presence,
// send channel, transport. Must only run inside the run loop.
func (h *Hub) dropClient(c *Client) {
	delete(h.clients, c)
	h.rooms.LeaveAll(c)
	h.presence.MarkOffline(c.username)
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (h *Hub) closeAllClients() {
	for c := range h.clients {
		h.dropClient(c)
	}
}

// Shutdown stops the run loop, closes every connection, and waits for the
// pump goroutines to finish or the timeout to pass.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}
