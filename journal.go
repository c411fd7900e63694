package pitradio

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	c "github.com/unkn0wn-root/pitradio/codec"
	"github.com/unkn0wn-root/pitradio/internal/util"
	"github.com/unkn0wn-root/pitradio/internal/wire"
	pr "github.com/unkn0wn-root/pitradio/provider"
	sq "github.com/unkn0wn-root/pitradio/seqstore"
)

const (
	defaultTTL = 24 * time.Hour
	// maxSpan bounds Replay/Export so one call cannot walk an unbounded range.
	maxSpan = 1 << 16
)

// seqAdvancer is implemented by seq stores that can be moved forward after Import.
type seqAdvancer interface {
	Advance(ctx context.Context, ns string, seq uint64) error
}

type journal struct {
	ns             string
	provider       pr.Provider
	records        c.Codec[Transmission]
	frames         c.Codec[[]string]
	seqs           sq.SeqStore
	log            Logger
	hooks          Hooks
	enabled        bool
	ttl            time.Duration
	maxFrameBytes  int
	computeSetCost SetCostFunc
	now            func() time.Time

	idMu    sync.Mutex
	entropy io.Reader
}

func newJournal(opts Options) (*journal, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("pitradio: provider is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("pitradio: namespace is required")
	}
	if opts.MaxFrameBytes < 0 {
		return nil, fmt.Errorf("pitradio: max frame bytes must not be negative")
	}

	j := &journal{
		ns:            opts.Namespace,
		provider:      opts.Provider,
		enabled:       !opts.Disabled,
		maxFrameBytes: opts.MaxFrameBytes,
		frames:        c.LimitCodec[[]string]{Inner: c.Frames{}, MaxDecode: opts.MaxFrameBytes},
		entropy:       ulid.Monotonic(rand.Reader, 0),
	}

	// defaults
	j.log = coalesce[Logger](opts.Logger, NopLogger{})
	j.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	j.records = coalesce[c.Codec[Transmission]](opts.RecordCodec, c.JSON[Transmission]{})
	j.seqs = coalesce[sq.SeqStore](opts.SeqStore, sq.NewLocalSeqStore())
	j.ttl = coalesce[time.Duration](opts.TTL, defaultTTL)
	if j.ttl < 0 {
		j.ttl = 0
	}

	if opts.ComputeSetCost != nil {
		j.computeSetCost = opts.ComputeSetCost
	} else {
		j.computeSetCost = func(_ string, raw []byte) int64 { return int64(len(raw)) }
	}
	if opts.Now != nil {
		j.now = opts.Now
	} else {
		j.now = time.Now
	}

	return j, nil
}

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func (j *journal) Enabled() bool { return j.enabled }

func (j *journal) Close(ctx context.Context) error {
	// Close seq store first (best effort)
	if j.seqs != nil {
		_ = j.seqs.Close(ctx)
	}
	if j.provider != nil {
		return j.provider.Close(ctx)
	}
	return nil
}

func (j *journal) Transmit(ctx context.Context, commands []string) (Transmission, error) {
	frames, err := c.Encode(commands)
	if err != nil {
		return Transmission{}, err
	}
	if j.maxFrameBytes > 0 && len(frames) > j.maxFrameBytes {
		return Transmission{}, fmt.Errorf("pitradio: transmit: %w: %d bytes, limit %d",
			c.ErrPayloadTooLarge, len(frames), j.maxFrameBytes)
	}
	now := j.now()
	id, err := j.newID(now)
	if err != nil {
		return Transmission{}, err
	}
	tx := Transmission{
		ID:       id,
		SentAt:   now,
		Frames:   frames,
		Commands: append([]string{}, commands...),
	}
	if !j.enabled {
		return tx, nil
	}

	seq, err := j.seqs.Next(ctx, j.ns)
	if err != nil {
		j.hooks.SeqError(j.ns, err)
		j.log.Error("seq allocation failed", Fields{"ns": j.ns, "err": err})
		return Transmission{}, fmt.Errorf("pitradio: allocate seq: %w", err)
	}
	tx.Seq = seq

	if err := j.store(ctx, tx); err != nil {
		return Transmission{}, err
	}
	f := txFields(j.ns, seq)
	f["commands"] = len(commands)
	f["bytes"] = len(frames)
	j.log.Debug("transmitted", f)
	return tx, nil
}

func (j *journal) store(ctx context.Context, tx Transmission) error {
	rec, err := j.records.Encode(tx)
	if err != nil {
		return fmt.Errorf("pitradio: encode record %d: %w", tx.Seq, err)
	}
	k := util.TxKey(j.ns, tx.Seq)
	wireb := wire.EncodeSingle(tx.Seq, rec)
	ok, err := j.provider.Set(ctx, k, wireb, j.computeSetCost(k, wireb), j.ttl)
	if err != nil {
		return err
	}
	if !ok {
		j.hooks.ProviderSetRejected(k)
		j.log.Warn("transmission rejected by provider (pressure)", txFields(j.ns, tx.Seq))
		return fmt.Errorf("%w: seq %d", ErrRejected, tx.Seq)
	}
	return nil
}

func (j *journal) Receive(ctx context.Context, seq uint64) (Transmission, bool, error) {
	if !j.enabled {
		return Transmission{}, false, nil
	}
	k := util.TxKey(j.ns, seq)
	raw, ok, err := j.provider.Get(ctx, k)
	if err != nil || !ok {
		return Transmission{}, false, err
	}

	tx, reason := j.unwrap(seq, raw)
	if reason != "" {
		_ = j.provider.Del(ctx, k) // self-heal
		j.hooks.SelfHeal(k, reason)
		f := txFields(j.ns, seq)
		f["reason"] = reason
		j.log.Debug("dropped unreadable transmission", f)
		return Transmission{}, false, nil
	}

	cmds, err := j.frames.Decode([]byte(tx.Frames))
	if errors.Is(err, c.ErrPayloadTooLarge) {
		// readable with a higher limit; keep the entry
		f := txFields(j.ns, seq)
		f["err"] = err
		j.log.Warn("stored frames exceed limit", f)
		return Transmission{}, false, fmt.Errorf("pitradio: receive %d: %w", seq, err)
	}
	if err != nil {
		delErr := j.provider.Del(ctx, k)
		j.hooks.FrameDecodeError(seq, err)
		f := txFields(j.ns, seq)
		f["err"] = err
		j.log.Warn("stored frames undecodable", f)
		return Transmission{}, false, &ReceiveError{Seq: seq, DecodeErr: err, DelErr: delErr}
	}
	tx.Commands = cmds
	return tx, true, nil
}

// unwrap validates the envelope and record of seq. A non-empty reason means
// the entry is unusable.
func (j *journal) unwrap(seq uint64, raw []byte) (Transmission, string) {
	gotSeq, payload, err := wire.DecodeSingle(raw)
	if err != nil {
		return Transmission{}, "corrupt"
	}
	if gotSeq != seq {
		return Transmission{}, "seq_mismatch"
	}
	tx, err := j.records.Decode(payload)
	if err != nil {
		return Transmission{}, "record_decode"
	}
	if tx.Seq != seq {
		return Transmission{}, "seq_mismatch"
	}
	return tx, ""
}

func (j *journal) Latest(ctx context.Context) (uint64, error) {
	return j.seqs.Current(ctx, j.ns)
}

func (j *journal) Replay(ctx context.Context, from, to uint64) ([]Transmission, []uint64, error) {
	if err := checkSpan(from, to); err != nil {
		return nil, nil, err
	}
	var (
		out     []Transmission
		missing []uint64
	)
	for seq := from; ; seq++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		tx, ok, err := j.Receive(ctx, seq)
		var re *ReceiveError
		switch {
		case errors.As(err, &re), errors.Is(err, c.ErrPayloadTooLarge):
			missing = append(missing, seq)
		case err != nil:
			return nil, nil, err
		case ok:
			out = append(out, tx)
		default:
			missing = append(missing, seq)
		}
		if seq == to {
			break
		}
	}
	return out, missing, nil
}

func (j *journal) Export(ctx context.Context, from, to uint64) ([]byte, error) {
	if err := checkSpan(from, to); err != nil {
		return nil, err
	}
	var items []wire.BatchItem
	if j.enabled {
		for seq := from; ; seq++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			raw, ok, err := j.provider.Get(ctx, util.TxKey(j.ns, seq))
			if err != nil {
				return nil, err
			}
			if ok {
				if gotSeq, payload, err := wire.DecodeSingle(raw); err == nil && gotSeq == seq {
					items = append(items, wire.BatchItem{Seq: seq, Payload: payload})
				}
			}
			if seq == to {
				break
			}
		}
	}
	blob, err := wire.EncodeBatch(items)
	if err != nil {
		return nil, err
	}
	j.log.Info("exported transmissions", Fields{"ns": j.ns, "from": from, "to": to, "count": len(items)})
	return blob, nil
}

// Import validates the whole archive before storing anything.
func (j *journal) Import(ctx context.Context, archive []byte) (int, error) {
	items, err := wire.DecodeBatch(archive)
	if err != nil {
		return 0, fmt.Errorf("pitradio: import: %w", err)
	}
	txs := make([]Transmission, 0, len(items))
	var maxSeq uint64
	for _, it := range items {
		tx, err := j.records.Decode(it.Payload)
		if err != nil {
			return 0, fmt.Errorf("pitradio: import seq %d: %w", it.Seq, err)
		}
		if tx.Seq != it.Seq {
			return 0, fmt.Errorf("pitradio: import seq %d: record carries seq %d", it.Seq, tx.Seq)
		}
		if _, err := j.frames.Decode([]byte(tx.Frames)); err != nil {
			return 0, fmt.Errorf("pitradio: import seq %d: %w", it.Seq, err)
		}
		txs = append(txs, tx)
		if tx.Seq > maxSeq {
			maxSeq = tx.Seq
		}
	}
	if !j.enabled {
		return 0, nil
	}

	for i, tx := range txs {
		if err := j.store(ctx, tx); err != nil {
			return i, err
		}
	}
	if adv, ok := j.seqs.(seqAdvancer); ok && maxSeq > 0 {
		if err := adv.Advance(ctx, j.ns, maxSeq); err != nil {
			j.hooks.SeqError(j.ns, err)
			return len(txs), fmt.Errorf("pitradio: advance seq after import: %w", err)
		}
	}
	j.log.Info("imported transmissions", Fields{"ns": j.ns, "count": len(txs)})
	return len(txs), nil
}

func (j *journal) newID(t time.Time) (string, error) {
	j.idMu.Lock()
	defer j.idMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(t), j.entropy)
	if err != nil {
		return "", fmt.Errorf("pitradio: new id: %w", err)
	}
	return id.String(), nil
}

func checkSpan(from, to uint64) error {
	if from > to {
		return fmt.Errorf("%w: from %d > to %d", ErrInvalidRange, from, to)
	}
	if to-from >= maxSpan {
		return fmt.Errorf("%w: span %d exceeds %d", ErrInvalidRange, to-from+1, maxSpan)
	}
	return nil
}
