package badger

import (
	"bytes"
	"context"
	"testing"
)

func TestInMemoryGetSetDel(t *testing.T) {
	ctx := context.Background()
	p, err := New(Config{InMemory: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(ctx) })

	if _, ok, err := p.Get(ctx, "tx:radio:1"); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}

	val := []byte("4:Push")
	if ok, err := p.Set(ctx, "tx:radio:1", val, 1, 0); err != nil || !ok {
		t.Fatalf("Set ok=%v err=%v", ok, err)
	}
	got, ok, err := p.Get(ctx, "tx:radio:1")
	if err != nil || !ok || !bytes.Equal(got, val) {
		t.Fatalf("Get = %q ok=%v err=%v", got, ok, err)
	}

	// returned bytes are a copy owned by the caller
	got[0] = 'X'
	again, _, _ := p.Get(ctx, "tx:radio:1")
	if !bytes.Equal(again, val) {
		t.Fatalf("stored value mutated through returned slice: %q", again)
	}

	if err := p.Del(ctx, "tx:radio:1"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, ok, _ := p.Get(ctx, "tx:radio:1"); ok {
		t.Fatalf("expected miss after Del")
	}
}

func TestNewRequiresDir(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error without dir")
	}
}

func TestOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	p, err := New(Config{Dir: dir, SyncWrites: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Set(ctx, "k", []byte("v"), 1, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := p.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p2, err := New(Config{Dir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = p2.Close(ctx) })
	if got, ok, err := p2.Get(ctx, "k"); err != nil || !ok || string(got) != "v" {
		t.Fatalf("after reopen Get = %q ok=%v err=%v", got, ok, err)
	}
}
