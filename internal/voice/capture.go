package voice

import (
	"context"
	"sync"

	"github.com/chadiek/eloquence/internal/domain"
)

// DefaultLang is the recognition locale requested from the browser.
const DefaultLang = "en-US"

// capture asks the browser for one finalized utterance.
type capture struct {
	conn *conn
	lang string

	mu       sync.Mutex
	returned []*request
}

func (c *capture) Listen(ctx context.Context) (string, error) {
	req := c.conn.register(true, msgUtterance, msgCaptureError)
	defer c.conn.unregister(req.id)
	defer func() {
		c.mu.Lock()
		c.returned = append(c.returned, req)
		c.mu.Unlock()
	}()

	if err := c.conn.writeJSON(serverMessage{Type: msgListen, ID: req.id, Lang: c.lang}); err != nil {
		return "", &domain.CaptureError{Reason: domain.CaptureDeviceError}
	}
	select {
	case <-ctx.Done():
		_ = c.conn.writeJSON(serverMessage{Type: msgCancelListen, ID: req.id})
		return "", ctx.Err()
	case <-c.conn.done():
		return "", &domain.CaptureError{Reason: domain.CaptureAborted}
	case m := <-req.reply:
		if m.Type == msgCaptureError {
			return "", &domain.CaptureError{Reason: domain.ParseCaptureReason(m.Reason)}
		}
		return m.Text, nil
	}
}

// Queued releases the read loop once the session holds a Listen result.
// Each returned Listen is followed by exactly one Queued call.
func (c *capture) Queued() {
	c.mu.Lock()
	if len(c.returned) == 0 {
		c.mu.Unlock()
		return
	}
	r := c.returned[0]
	c.returned = c.returned[1:]
	c.mu.Unlock()
	r.markQueued()
}
