package voice

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// queueWait bounds how long the read loop holds back later messages
	// while a capture result is handed to the session.
	queueWait = 2 * time.Second
)

// conn serializes writes to a websocket and routes id-tagged client replies
// to the adapter call waiting for them.
type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*request

	closed    chan struct{}
	closeOnce sync.Once
}

// request is one outstanding listen or speak call.
type request struct {
	id    uint64
	kinds []string
	reply chan clientMessage
	// queued is closed once the reply has reached the session. Nil when the
	// reply needs no ordering against later commands.
	queued    chan struct{}
	queueOnce sync.Once
}

func (r *request) accepts(typ string) bool {
	for _, k := range r.kinds {
		if k == typ {
			return true
		}
	}
	return false
}

func (r *request) markQueued() {
	if r.queued != nil {
		r.queueOnce.Do(func() { close(r.queued) })
	}
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{
		ws:      ws,
		pending: make(map[uint64]*request),
		closed:  make(chan struct{}),
	}
}

func (c *conn) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

func (c *conn) writeBinary(b []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.BinaryMessage, b)
}

// register allocates a request accepting replies of the given types. The
// reply channel receives at most one message. With ordered set, resolve
// holds the read loop until markQueued is called.
func (c *conn) register(ordered bool, kinds ...string) *request {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	r := &request{id: c.nextID, kinds: kinds, reply: make(chan clientMessage, 1)}
	if ordered {
		r.queued = make(chan struct{})
	}
	c.pending[r.id] = r
	return r
}

func (c *conn) unregister(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// resolve delivers a reply to its waiting request. Replies for unknown or
// already answered ids, or of a type the request does not expect, are
// dropped. For ordered requests resolve returns only after the reply was
// queued, so messages read after it are handled after it.
func (c *conn) resolve(m clientMessage) bool {
	c.mu.Lock()
	r, ok := c.pending[m.ID]
	if ok && !r.accepts(m.Type) {
		ok = false
	}
	if ok {
		delete(c.pending, m.ID)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	r.reply <- m
	if r.queued != nil {
		t := time.NewTimer(queueWait)
		defer t.Stop()
		select {
		case <-r.queued:
		case <-c.closed:
		case <-t.C:
		}
	}
	return true
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.ws.Close()
	})
}

func (c *conn) done() <-chan struct{} { return c.closed }
