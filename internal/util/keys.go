package util

import (
	"strconv"
	"strings"
)

const (
	txPrefix  = "tx:"
	seqPrefix = "seq:"
)

// TxKey returns the storage key of transmission seq: tx:<ns>:<seq>.
func TxKey(ns string, seq uint64) string {
	var b strings.Builder
	b.Grow(len(txPrefix) + len(ns) + 1 + 20)
	b.WriteString(txPrefix)
	b.WriteString(ns)
	b.WriteByte(':')
	b.WriteString(strconv.FormatUint(seq, 10))
	return b.String()
}

// SeqKey returns the key holding the sequence counter of ns: seq:<ns>.
func SeqKey(ns string) string { return seqPrefix + ns }
