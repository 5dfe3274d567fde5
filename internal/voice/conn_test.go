package voice

import (
	"testing"
	"time"
)

func TestConnResolve_MatchesType(t *testing.T) {
	c := newConn(nil)
	r := c.register(false, msgPlaybackDone)
	if c.resolve(clientMessage{Type: msgUtterance, ID: r.id}) {
		t.Fatalf("utterance resolved a speak request")
	}
	if !c.resolve(clientMessage{Type: msgPlaybackDone, ID: r.id}) {
		t.Fatalf("playback_done not delivered")
	}
	if c.resolve(clientMessage{Type: msgPlaybackDone, ID: r.id}) {
		t.Fatalf("second reply delivered")
	}
	if m := <-r.reply; m.Type != msgPlaybackDone {
		t.Fatalf("unexpected reply %+v", m)
	}
}

func TestConnResolve_WaitsUntilQueued(t *testing.T) {
	c := newConn(nil)
	r := c.register(true, msgUtterance)
	returned := make(chan struct{})
	go func() {
		c.resolve(clientMessage{Type: msgUtterance, ID: r.id, Text: "hi"})
		close(returned)
	}()
	<-r.reply
	select {
	case <-returned:
		t.Fatalf("resolve returned before the reply was queued")
	case <-time.After(50 * time.Millisecond):
	}
	r.markQueued()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatalf("resolve still blocked after markQueued")
	}
}
