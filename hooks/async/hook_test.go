package asynchook

import (
	"errors"
	"sync"
	"testing"

	"github.com/unkn0wn-root/pitradio"
)

type countHooks struct {
	mu    sync.Mutex
	calls map[string]int
	block chan struct{}
}

func (c *countHooks) inc(name string) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.calls[name]++
	c.mu.Unlock()
}

func (c *countHooks) SelfHeal(string, string)        { c.inc("self_heal") }
func (c *countHooks) ProviderSetRejected(string)     { c.inc("rejected") }
func (c *countHooks) SeqError(string, error)         { c.inc("seq") }
func (c *countHooks) FrameDecodeError(uint64, error) { c.inc("frames") }

var _ pitradio.Hooks = (*countHooks)(nil)

func TestDeliversAllThenCloses(t *testing.T) {
	inner := &countHooks{calls: map[string]int{}}
	h := New(inner, 2, 64)

	for i := 0; i < 10; i++ {
		h.SelfHeal("tx:radio:1", "corrupt")
	}
	h.ProviderSetRejected("tx:radio:2")
	h.SeqError("radio", errors.New("down"))
	h.FrameDecodeError(3, errors.New("bad"))
	h.Close()
	h.Close() // idempotent

	want := map[string]int{"self_heal": 10, "rejected": 1, "seq": 1, "frames": 1}
	for k, v := range want {
		if inner.calls[k] != v {
			t.Fatalf("%s calls = %d, want %d", k, inner.calls[k], v)
		}
	}
	if h.Dropped() != 0 {
		t.Fatalf("unexpected drops: %d", h.Dropped())
	}

	h.SelfHeal("after", "close")
	if h.Dropped() != 1 {
		t.Fatalf("event after Close should be dropped, dropped=%d", h.Dropped())
	}
}

func TestDropsWhenQueueFull(t *testing.T) {
	inner := &countHooks{calls: map[string]int{}, block: make(chan struct{})}
	h := New(inner, 1, 1)

	// one event held by the worker, one in the queue; the rest overflow
	for i := 0; i < 20; i++ {
		h.ProviderSetRejected("k")
	}
	if h.Dropped() < 18 {
		t.Fatalf("expected at least 18 drops, got %d", h.Dropped())
	}
	close(inner.block)
	h.Close()
	if got := inner.calls["rejected"] + int(h.Dropped()); got != 20 {
		t.Fatalf("delivered+dropped = %d, want 20", got)
	}
}
