package ristretto

import (
	"context"
	"testing"
	"time"
)

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	p, err := New(Config{NumCounters: 1e4, MaxCost: 1 << 20, BufferItems: 64})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close(ctx) })

	ok, err := p.Set(ctx, "tx:radio:1", []byte("4:Push"), 1, time.Minute)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !ok {
		t.Skip("ristretto dropped the write under admission policy")
	}
	got, hit, err := p.Get(ctx, "tx:radio:1")
	if err != nil || !hit || string(got) != "4:Push" {
		t.Fatalf("Get = %q hit=%v err=%v", got, hit, err)
	}
	_ = p.Del(ctx, "tx:radio:1")
	p.c.Wait()
	if _, hit, _ := p.Get(ctx, "tx:radio:1"); hit {
		t.Fatalf("expected miss after Del")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected invalid config error")
	}
}
