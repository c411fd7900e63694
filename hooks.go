package pitradio

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The journal calls them on hot paths.
type Hooks interface {
	// A stored entry was deleted on read.
	// reason ∈ {"corrupt", "seq_mismatch", "record_decode"}
	SelfHeal(storageKey, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// SeqStore failed to hand out a sequence number.
	SeqError(ns string, err error)

	// A stored transmission passed envelope checks but its frames did not decode.
	FrameDecodeError(seq uint64, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string)        {}
func (NopHooks) ProviderSetRejected(string)     {}
func (NopHooks) SeqError(string, error)         {}
func (NopHooks) FrameDecodeError(uint64, error) {}

// MultiHooks fans every event out to each member in order.
type MultiHooks []Hooks

func (m MultiHooks) SelfHeal(k, r string) {
	for _, h := range m {
		h.SelfHeal(k, r)
	}
}

func (m MultiHooks) ProviderSetRejected(k string) {
	for _, h := range m {
		h.ProviderSetRejected(k)
	}
}

func (m MultiHooks) SeqError(ns string, err error) {
	for _, h := range m {
		h.SeqError(ns, err)
	}
}

func (m MultiHooks) FrameDecodeError(seq uint64, err error) {
	for _, h := range m {
		h.FrameDecodeError(seq, err)
	}
}
