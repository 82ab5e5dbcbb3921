package bridge

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// client is one connected WebSocket peer plus its subscription state,
// grounded on marcopennelli-orbo's map[*websocket.Conn]bool registry
// pattern but keyed by a generated uuid rather than the raw connection
// pointer, since this server also needs to log/report a stable client
// identity independent of the socket.
type client struct {
	id   uuid.UUID
	conn *websocket.Conn

	mutex            sync.Mutex
	subscribedColor  bool
	subscribedDepth  bool
}

func newClient(conn *websocket.Conn) *client {
	return &client{id: uuid.New(), conn: conn}
}

// setSubscriptions replaces this client's subscriptions with the union of
// stream names named in streams. Unknown names are ignored silently
// (spec §4.3: future-compatible).
func (c *client) setSubscriptions(streams []string) {
	var color, depth bool
	for _, s := range streams {
		switch s {
		case "color":
			color = true
		case "depth":
			depth = true
		}
	}
	c.mutex.Lock()
	c.subscribedColor = color
	c.subscribedDepth = depth
	c.mutex.Unlock()
}

func (c *client) clearSubscriptions() {
	c.mutex.Lock()
	c.subscribedColor = false
	c.subscribedDepth = false
	c.mutex.Unlock()
}

func (c *client) subscriptions() (color, depth bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.subscribedColor, c.subscribedDepth
}

// sendJSON and sendBinary both apply a bounded write deadline so a slow
// or dead peer cannot stall the broadcast loop indefinitely, matching
// orbo's conn.SetWriteDeadline discipline in BroadcastToCamera.
const clientWriteTimeout = 2 * time.Second

func (c *client) sendJSON(data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(clientWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *client) sendBinary(data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(clientWriteTimeout))
	return c.conn.WriteMessage(websocket.BinaryMessage, data)
}

// registry is the set of currently connected clients, one mutex guarding
// the whole map per spec §5's "Client set: one mutex" policy.
type registry struct {
	mutex   sync.RWMutex
	clients map[uuid.UUID]*client
}

func newRegistry() *registry {
	return &registry{clients: make(map[uuid.UUID]*client)}
}

func (r *registry) add(c *client) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.clients[c.id] = c
}

func (r *registry) remove(c *client) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.clients, c.id)
}

func (r *registry) count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.clients)
}

// snapshot returns the current clients for the broadcast loop to iterate
// outside the registry lock, the same "copy the slice, release, then
// work" shape orbo's hub uses for BroadcastToCamera.
func (r *registry) snapshot() []*client {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	out := make([]*client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}
