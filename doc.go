// Package pitradio transmits ordered lists of short text commands over an
// unreliable channel and keeps a sequenced journal of what was sent.
//
// Commands travel in the length-prefixed format of package codec:
//
//	["Push", "Box,box"]  ->  "4:Push7:Box,box"
//
// Components:
//   - codec: the command-list wire format plus record codecs (JSON, msgpack, CBOR, protobuf).
//   - Provider: byte store with TTL (e.g. Ristretto, BigCache, Redis, Badger).
//   - SeqStore: per-namespace sequence counter. Local (in-process) by default,
//     optional Redis implementation for multi-replica / restart persistence.
//   - Hooks: SelfHeal, ProviderSetRejected, SeqError and FrameDecodeError events;
//     see sloghooks, hooks/async and hooks/prom.
//   - Outer surfaces: httpapi (echo), transport/kafka and cmd/pitradio.
//
// Keys:
//
//	tx:<ns>:<seq>  - one stored transmission
//	seq:<ns>       - sequence counter (Redis SeqStore only)
//
// Usage:
//
//	j, _ := pitradio.New(pitradio.Options{Namespace: "car44", Provider: p})
//	tx, _ := j.Transmit(ctx, []string{"Push", "Box,box"})
//	got, ok, _ := j.Receive(ctx, tx.Seq)
package pitradio
