package pitradio

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	c "github.com/unkn0wn-root/pitradio/codec"
	"github.com/unkn0wn-root/pitradio/internal/util"
	"github.com/unkn0wn-root/pitradio/internal/wire"
	pr "github.com/unkn0wn-root/pitradio/provider"
	sq "github.com/unkn0wn-root/pitradio/seqstore"
)

type memEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type memProvider struct {
	mu     sync.Mutex
	m      map[string]memEntry
	reject bool
}

var _ pr.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider { return &memProvider{m: make(map[string]memEntry)} }

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(p.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reject {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.m[key] = memEntry{v: value, exp: exp}
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.m, key)
	p.mu.Unlock()
	return nil
}

func (p *memProvider) Close(_ context.Context) error { return nil }

func (p *memProvider) has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.m[key]
	return ok
}

type recHooks struct {
	mu       sync.Mutex
	selfHeal []string
	rejected []string
	decode   []uint64
	seqErrs  int
}

func (h *recHooks) SelfHeal(_ string, reason string) {
	h.mu.Lock()
	h.selfHeal = append(h.selfHeal, reason)
	h.mu.Unlock()
}

func (h *recHooks) ProviderSetRejected(k string) {
	h.mu.Lock()
	h.rejected = append(h.rejected, k)
	h.mu.Unlock()
}

func (h *recHooks) SeqError(string, error) {
	h.mu.Lock()
	h.seqErrs++
	h.mu.Unlock()
}

func (h *recHooks) FrameDecodeError(seq uint64, _ error) {
	h.mu.Lock()
	h.decode = append(h.decode, seq)
	h.mu.Unlock()
}

func newTestJournal(t *testing.T, ns string, mp pr.Provider, optsOpt func(*Options)) Journal {
	t.Helper()
	opts := Options{
		Namespace: ns,
		Provider:  mp,
	}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	j, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return j
}

func mustImpl(t *testing.T, j Journal) *journal {
	t.Helper()
	impl, ok := j.(*journal)
	if !ok {
		t.Fatalf("unexpected concrete type for Journal")
	}
	return impl
}

func mustTransmit(t *testing.T, j Journal, cmds ...string) Transmission {
	t.Helper()
	tx, err := j.Transmit(context.Background(), cmds)
	if err != nil {
		t.Fatalf("Transmit(%q): %v", cmds, err)
	}
	return tx
}

func injectRecord(t *testing.T, impl *journal, tx Transmission) {
	t.Helper()
	rec, err := impl.records.Encode(tx)
	if err != nil {
		t.Fatalf("encode record: %v", err)
	}
	k := util.TxKey(impl.ns, tx.Seq)
	if ok, err := impl.provider.Set(context.Background(), k, wire.EncodeSingle(tx.Seq, rec), 1, time.Minute); err != nil || !ok {
		t.Fatalf("inject: ok=%v err=%v", ok, err)
	}
}

func TestTransmitReceiveFlow(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	at := time.Date(2026, 5, 24, 14, 3, 0, 0, time.UTC)
	j := newTestJournal(t, "car44", mp, func(o *Options) { o.Now = func() time.Time { return at } })
	defer j.Close(ctx)

	if _, ok, err := j.Receive(ctx, 1); err != nil || ok {
		t.Fatalf("Receive before Transmit should miss, ok=%v err=%v", ok, err)
	}

	tx := mustTransmit(t, j, "Push", "Box,box", "Push", "Overtake")
	if tx.Seq != 1 {
		t.Fatalf("first seq = %d, want 1", tx.Seq)
	}
	if tx.Frames != "4:Push7:Box,box4:Push8:Overtake" {
		t.Fatalf("frames = %q", tx.Frames)
	}
	if tx.ID == "" || !tx.SentAt.Equal(at) {
		t.Fatalf("unexpected id/time: %+v", tx)
	}
	if !mp.has("tx:car44:1") {
		t.Fatalf("expected entry under tx:car44:1")
	}

	got, ok, err := j.Receive(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("Receive: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got.Commands, tx.Commands) || got.ID != tx.ID || got.Frames != tx.Frames {
		t.Fatalf("Receive = %+v, want %+v", got, tx)
	}

	tx2 := mustTransmit(t, j, "", "Push", "")
	if tx2.Seq != 2 || tx2.Frames != "0:4:Push0:" {
		t.Fatalf("second transmission = %+v", tx2)
	}
	if latest, err := j.Latest(ctx); err != nil || latest != 2 {
		t.Fatalf("Latest = %d, %v", latest, err)
	}
}

func TestTransmitEmptyList(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(t, "radio", newMemProvider(), nil)

	tx := mustTransmit(t, j)
	if tx.Frames != "" {
		t.Fatalf("empty list frames = %q", tx.Frames)
	}
	got, ok, err := j.Receive(ctx, tx.Seq)
	if err != nil || !ok || len(got.Commands) != 0 {
		t.Fatalf("Receive empty: %+v ok=%v err=%v", got, ok, err)
	}
}

func TestTransmitEncodingErrorConsumesNoSeq(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(t, "radio", newMemProvider(), nil)

	_, err := j.Transmit(ctx, []string{"Push", "\xff"})
	if !errors.Is(err, c.ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
	if latest, _ := j.Latest(ctx); latest != 0 {
		t.Fatalf("failed transmit consumed seq %d", latest)
	}
}

func TestSelfHealOnCorrupt(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	hooks := &recHooks{}
	j := newTestJournal(t, "radio", mp, func(o *Options) { o.Hooks = hooks })
	impl := mustImpl(t, j)

	k := util.TxKey("radio", 5)

	// foreign bytes
	_, _ = mp.Set(ctx, k, []byte("not-wire-format"), 1, time.Minute)
	if _, ok, err := j.Receive(ctx, 5); err != nil || ok {
		t.Fatalf("Receive on corrupt should miss, ok=%v err=%v", ok, err)
	}
	if mp.has(k) {
		t.Fatalf("corrupt entry was not deleted by self-heal")
	}

	// valid envelope under the wrong key
	injectRecord(t, impl, Transmission{Seq: 6, Frames: "4:Push"})
	raw, _, _ := mp.Get(ctx, util.TxKey("radio", 6))
	_, _ = mp.Set(ctx, k, raw, 1, time.Minute)
	if _, ok, _ := j.Receive(ctx, 5); ok {
		t.Fatalf("seq mismatch should miss")
	}

	// record codec cannot read payload
	_, _ = mp.Set(ctx, k, wire.EncodeSingle(5, []byte("{not json")), 1, time.Minute)
	if _, ok, _ := j.Receive(ctx, 5); ok {
		t.Fatalf("undecodable record should miss")
	}

	want := []string{"corrupt", "seq_mismatch", "record_decode"}
	if !reflect.DeepEqual(hooks.selfHeal, want) {
		t.Fatalf("self-heal reasons = %v, want %v", hooks.selfHeal, want)
	}
}

func TestReceiveUndecodableFrames(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	hooks := &recHooks{}
	j := newTestJournal(t, "radio", mp, func(o *Options) { o.Hooks = hooks })
	impl := mustImpl(t, j)

	injectRecord(t, impl, Transmission{Seq: 3, Frames: "4:Pus"})

	_, ok, err := j.Receive(ctx, 3)
	if ok {
		t.Fatalf("expected no result")
	}
	var re *ReceiveError
	if !errors.As(err, &re) || re.Seq != 3 {
		t.Fatalf("expected *ReceiveError for seq 3, got %v", err)
	}
	if !errors.Is(err, c.ErrInsufficientData) || !errors.Is(err, c.ErrDecoding) {
		t.Fatalf("ReceiveError should wrap the decoding error, got %v", err)
	}
	if mp.has(util.TxKey("radio", 3)) {
		t.Fatalf("undecodable entry should be deleted")
	}
	if !reflect.DeepEqual(hooks.decode, []uint64{3}) {
		t.Fatalf("FrameDecodeError hook calls = %v", hooks.decode)
	}
}

func TestMaxFrameBytes(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	hooks := &recHooks{}
	j := newTestJournal(t, "radio", mp, func(o *Options) {
		o.MaxFrameBytes = 8
		o.Hooks = hooks
	})
	impl := mustImpl(t, j)

	small := mustTransmit(t, j, "Push")
	if _, ok, err := j.Receive(ctx, small.Seq); err != nil || !ok {
		t.Fatalf("small transmission: ok=%v err=%v", ok, err)
	}

	// oversize writes fail up front and consume no seq
	if _, err := j.Transmit(ctx, []string{"Overtake now"}); !errors.Is(err, c.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge from Transmit, got %v", err)
	}
	if latest, _ := j.Latest(ctx); latest != small.Seq {
		t.Fatalf("oversize transmit consumed a seq: latest=%d", latest)
	}

	// an entry stored under a larger limit stays put
	injectRecord(t, impl, Transmission{Seq: 9, Frames: "12:Overtake now"})
	for i := 0; i < 2; i++ {
		_, ok, err := j.Receive(ctx, 9)
		if ok || !errors.Is(err, c.ErrPayloadTooLarge) {
			t.Fatalf("Receive#%d: ok=%v err=%v, want ErrPayloadTooLarge", i+1, ok, err)
		}
		var re *ReceiveError
		if errors.As(err, &re) {
			t.Fatalf("size limit should not surface as *ReceiveError: %v", err)
		}
	}
	if !mp.has(util.TxKey("radio", 9)) {
		t.Fatalf("oversize entry was deleted")
	}
	if len(hooks.decode) != 0 || len(hooks.selfHeal) != 0 {
		t.Fatalf("unexpected hooks: decode=%v selfHeal=%v", hooks.decode, hooks.selfHeal)
	}

	got, missing, err := j.Replay(ctx, 9, 9)
	if err != nil || len(got) != 0 || !reflect.DeepEqual(missing, []uint64{9}) {
		t.Fatalf("Replay oversize: got=%v missing=%v err=%v", got, missing, err)
	}
}

func TestTransmitClockBeforeEpoch(t *testing.T) {
	ctx := context.Background()
	for _, at := range []time.Time{{}, time.Date(1969, 7, 20, 20, 17, 0, 0, time.UTC)} {
		j := newTestJournal(t, "radio", newMemProvider(), func(o *Options) { o.Now = func() time.Time { return at } })
		if _, err := j.Transmit(ctx, []string{"Push"}); err == nil {
			t.Fatalf("Transmit at %v: expected error", at)
		}
		if latest, _ := j.Latest(ctx); latest != 0 {
			t.Fatalf("Transmit at %v consumed seq %d", at, latest)
		}
	}
}

func TestProviderRejected(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	mp.reject = true
	hooks := &recHooks{}
	j := newTestJournal(t, "radio", mp, func(o *Options) { o.Hooks = hooks })

	_, err := j.Transmit(ctx, []string{"Push"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if len(hooks.rejected) != 1 || hooks.rejected[0] != "tx:radio:1" {
		t.Fatalf("rejected hook calls = %v", hooks.rejected)
	}
}

type failingSeqs struct{ sq.SeqStore }

func (failingSeqs) Next(context.Context, string) (uint64, error) {
	return 0, errors.New("seq backend down")
}

func TestSeqStoreError(t *testing.T) {
	hooks := &recHooks{}
	j := newTestJournal(t, "radio", newMemProvider(), func(o *Options) {
		o.Hooks = hooks
		o.SeqStore = failingSeqs{sq.NewLocalSeqStore()}
	})
	if _, err := j.Transmit(context.Background(), []string{"Push"}); err == nil {
		t.Fatalf("expected seq error")
	}
	if hooks.seqErrs != 1 {
		t.Fatalf("SeqError hook calls = %d", hooks.seqErrs)
	}
}

func TestReplayOrderAndMissing(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	j := newTestJournal(t, "radio", mp, nil)

	for _, cmd := range []string{"Push", "Box", "Pit", "DRS"} {
		mustTransmit(t, j, cmd)
	}
	_ = mp.Del(ctx, util.TxKey("radio", 2))

	got, missing, err := j.Replay(ctx, 1, 5)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	var seqs []uint64
	var cmds []string
	for _, tx := range got {
		seqs = append(seqs, tx.Seq)
		cmds = append(cmds, tx.Commands...)
	}
	if !reflect.DeepEqual(seqs, []uint64{1, 3, 4}) || !reflect.DeepEqual(cmds, []string{"Push", "Pit", "DRS"}) {
		t.Fatalf("Replay seqs=%v cmds=%v", seqs, cmds)
	}
	if !reflect.DeepEqual(missing, []uint64{2, 5}) {
		t.Fatalf("missing = %v", missing)
	}

	if _, _, err := j.Replay(ctx, 3, 1); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if _, _, err := j.Replay(ctx, 0, maxSpan); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for oversized span, got %v", err)
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestJournal(t, "radio", newMemProvider(), nil)
	for _, cmds := range [][]string{{"Push"}, {"", "Box,box"}, {"Café", "a:b"}} {
		mustTransmit(t, src, cmds...)
	}

	blob, err := src.Export(ctx, 1, 10)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	dst := newTestJournal(t, "radio", newMemProvider(), nil)
	n, err := dst.Import(ctx, blob)
	if err != nil || n != 3 {
		t.Fatalf("Import n=%d err=%v", n, err)
	}
	for seq := uint64(1); seq <= 3; seq++ {
		a, _, _ := src.Receive(ctx, seq)
		b, ok, err := dst.Receive(ctx, seq)
		if err != nil || !ok || !reflect.DeepEqual(a.Commands, b.Commands) || a.ID != b.ID {
			t.Fatalf("seq %d: src=%+v dst=%+v ok=%v err=%v", seq, a, b, ok, err)
		}
	}

	// imported seqs are not reused
	if tx := mustTransmit(t, dst, "Overtake"); tx.Seq != 4 {
		t.Fatalf("seq after import = %d, want 4", tx.Seq)
	}
}

func TestImportRejectsBadArchives(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(t, "radio", newMemProvider(), nil)
	impl := mustImpl(t, j)

	if _, err := j.Import(ctx, []byte("garbage")); !errors.Is(err, wire.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}

	rec, _ := impl.records.Encode(Transmission{Seq: 1, Frames: "5:Push"})
	blob, _ := wire.EncodeBatch([]wire.BatchItem{{Seq: 1, Payload: rec}})
	if _, err := j.Import(ctx, blob); !errors.Is(err, c.ErrInsufficientData) {
		t.Fatalf("expected frame validation error, got %v", err)
	}

	rec, _ = impl.records.Encode(Transmission{Seq: 9, Frames: "4:Push"})
	blob, _ = wire.EncodeBatch([]wire.BatchItem{{Seq: 1, Payload: rec}})
	if _, err := j.Import(ctx, blob); err == nil {
		t.Fatalf("expected seq mismatch error")
	}
	if latest, _ := j.Latest(ctx); latest != 0 {
		t.Fatalf("rejected import must not store or advance, latest=%d", latest)
	}
}

func TestRecordCodecs(t *testing.T) {
	ctx := context.Background()
	codecs := map[string]c.Codec[Transmission]{
		"msgpack": c.Msgpack[Transmission]{},
		"cbor":    c.MustCBOR[Transmission](true),
	}
	for name, rc := range codecs {
		j := newTestJournal(t, "radio", newMemProvider(), func(o *Options) { o.RecordCodec = rc })
		tx := mustTransmit(t, j, "Push", "温度")
		got, ok, err := j.Receive(ctx, tx.Seq)
		if err != nil || !ok || !reflect.DeepEqual(got.Commands, []string{"Push", "温度"}) || got.ID != tx.ID {
			t.Fatalf("%s: got %+v ok=%v err=%v", name, got, ok, err)
		}
	}
}

func TestDisabled(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	j := newTestJournal(t, "radio", mp, func(o *Options) { o.Disabled = true })

	if j.Enabled() {
		t.Fatalf("expected disabled journal")
	}
	tx := mustTransmit(t, j, "Push")
	if tx.Frames != "4:Push" || tx.Seq != 0 {
		t.Fatalf("disabled transmit = %+v", tx)
	}
	if len(mp.m) != 0 {
		t.Fatalf("disabled journal wrote %d entries", len(mp.m))
	}
	if _, ok, _ := j.Receive(ctx, 1); ok {
		t.Fatalf("disabled journal should always miss")
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Options{Namespace: "x"}); err == nil {
		t.Fatalf("expected error without provider")
	}
	if _, err := New(Options{Provider: newMemProvider()}); err == nil {
		t.Fatalf("expected error without namespace")
	}
	if _, err := New(Options{Namespace: "x", Provider: newMemProvider(), MaxFrameBytes: -1}); err == nil {
		t.Fatalf("expected error for negative MaxFrameBytes")
	}
}

func TestConcurrentTransmitUniqueSeqs(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(t, "radio", newMemProvider(), nil)

	const workers, per = 8, 25
	var (
		mu   sync.Mutex
		seen = make(map[uint64]string)
		wg   sync.WaitGroup
	)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				tx, err := j.Transmit(ctx, []string{"Push"})
				if err != nil {
					t.Errorf("Transmit: %v", err)
					return
				}
				mu.Lock()
				seen[tx.Seq] = tx.ID
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != workers*per {
		t.Fatalf("expected %d unique seqs, got %d", workers*per, len(seen))
	}
	ids := make(map[string]bool, len(seen))
	for _, id := range seen {
		ids[id] = true
	}
	if len(ids) != len(seen) {
		t.Fatalf("transmission ids are not unique")
	}
}
