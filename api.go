package pitradio

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/pitradio/codec"
	pr "github.com/unkn0wn-root/pitradio/provider"
	sq "github.com/unkn0wn-root/pitradio/seqstore"
)

type SetCostFunc func(key string, raw []byte) int64

// Transmission is one command list as sent on the channel.
// Frames is the encoded buffer; Commands is filled on Transmit and Receive
// and never stored.
type Transmission struct {
	ID       string    `json:"id" msgpack:"id" cbor:"1,keyasint"`
	Seq      uint64    `json:"seq" msgpack:"seq" cbor:"2,keyasint"`
	SentAt   time.Time `json:"sent_at" msgpack:"sent_at" cbor:"3,keyasint"`
	Frames   string    `json:"frames" msgpack:"frames" cbor:"4,keyasint"`
	Commands []string  `json:"-" msgpack:"-" cbor:"-"`
}

// Journal sequences transmissions and stores them in a Provider.
// Safe for concurrent use.
type Journal interface {
	Enabled() bool
	Close(context.Context) error

	// Transmit encodes commands, assigns the next sequence number and stores it.
	Transmit(ctx context.Context, commands []string) (Transmission, error)
	// Receive loads and decodes transmission seq. Miss => ok=false, err=nil.
	Receive(ctx context.Context, seq uint64) (tx Transmission, ok bool, err error)
	// Latest returns the last sequence number handed out (0 if none).
	Latest(ctx context.Context) (uint64, error)

	// Replay returns stored transmissions in [from, to] in order, and the seqs that were missing.
	Replay(ctx context.Context, from, to uint64) ([]Transmission, []uint64, error)
	// Export packs stored transmissions in [from, to] into one archive blob.
	Export(ctx context.Context, from, to uint64) ([]byte, error)
	// Import stores every transmission of an archive produced by Export.
	Import(ctx context.Context, archive []byte) (int, error)
}

// Options tune the journal.
// Only Namespace and Provider are required; others have sensible defaults.
type Options struct {
	// Required
	Namespace string // logical channel, e.g. "car44" or "team:radio"
	Provider  pr.Provider

	RecordCodec    c.Codec[Transmission] // stored record format; nil => JSON
	SeqStore       sq.SeqStore           // nil => LocalSeqStore (in-process)
	Logger         Logger                // if nil, NopLogger is used
	Hooks          Hooks                 // if nil, NopHooks is used
	TTL            time.Duration         // 0 => 24h; < 0 => no expiry
	MaxFrameBytes  int                   // max encoded size accepted on Transmit/Receive/Import; 0 => unlimited
	ComputeSetCost SetCostFunc           // default: len(raw)
	Disabled       bool                  // default false (enabled)
	Now            func() time.Time      // clock; nil => time.Now
}

func New(opts Options) (Journal, error) {
	return newJournal(opts)
}
