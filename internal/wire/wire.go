package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

const (
	version     byte = 1
	kindSingle  byte = 1
	kindBatch   byte = 2
	singleHdr        = 4 + 1 + 1 + 8 + 8 + 4
	batchHdr         = 4 + 1 + 1 + 4
	batchItem        = 8 + 4
	batchSumLen      = 8
)

var (
	ErrCorrupt = errors.New("pitradio: corrupt entry")
	magic4     = [...]byte{'P', 'R', 'A', 'D'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Single: magic(4) | ver(1) | kind(1=single) | seq(u64 be) | sum(u64 be) | vlen(u32 be) | payload(vlen)
// sum is xxhash64 of payload.
func EncodeSingle(seq uint64, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Grow(singleHdr + len(payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindSingle)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], seq)
	buf.Write(u8[:])

	binary.BigEndian.PutUint64(u8[:], xxhash.Sum64(payload))
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(payload)))
	buf.Write(u4[:])

	buf.Write(payload)
	return buf.Bytes()
}

// DecodeSingle validates an envelope and returns its seq and payload.
// payload aliases b.
func DecodeSingle(b []byte) (seq uint64, payload []byte, err error) {
	if len(b) < singleHdr || !hasMagic(b) || b[4] != version || b[5] != kindSingle {
		return 0, nil, ErrCorrupt
	}

	off := 6
	seq = binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	sum := binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off { // truncated or trailing bytes
		return 0, nil, ErrCorrupt
	}

	payload = b[off:]
	if xxhash.Sum64(payload) != sum {
		return 0, nil, ErrCorrupt
	}
	return seq, payload, nil
}

// Batch:
//
//	magic(4) | ver(1) | kind(2=batch) | n(u32 be)
//	seq(u64 be) | vlen(u32 be) | payload(vlen) * n
//	sum(u64 be)  xxhash64 of every preceding byte
type BatchItem struct {
	Seq     uint64
	Payload []byte
}

func EncodeBatch(items []BatchItem) ([]byte, error) {
	if uint64(len(items)) > math.MaxUint32 {
		return nil, fmt.Errorf("pitradio: batch of %d items exceeds wire limit", len(items))
	}
	total := batchHdr + batchSumLen
	for i, it := range items {
		if uint64(len(it.Payload)) > math.MaxUint32 {
			return nil, fmt.Errorf("pitradio: batch item %d payload too large", i)
		}
		total += batchItem + len(it.Payload)
	}

	var buf bytes.Buffer
	buf.Grow(total)

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindBatch)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint32(u4[:], uint32(len(items)))
	buf.Write(u4[:])

	for _, it := range items {
		binary.BigEndian.PutUint64(u8[:], it.Seq)
		buf.Write(u8[:])

		binary.BigEndian.PutUint32(u4[:], uint32(len(it.Payload)))
		buf.Write(u4[:])
		buf.Write(it.Payload)
	}

	binary.BigEndian.PutUint64(u8[:], xxhash.Sum64(buf.Bytes()))
	buf.Write(u8[:])
	return buf.Bytes(), nil
}

func DecodeBatch(b []byte) ([]BatchItem, error) {
	if len(b) < batchHdr+batchSumLen || !hasMagic(b) || b[4] != version || b[5] != kindBatch {
		return nil, ErrCorrupt
	}

	body := b[:len(b)-batchSumLen]
	if xxhash.Sum64(body) != binary.BigEndian.Uint64(b[len(b)-batchSumLen:]) {
		return nil, ErrCorrupt
	}

	off := 6
	n := int(binary.BigEndian.Uint32(body[off : off+4]))
	off += 4
	// every item needs at least its fixed header; reject absurd counts before allocating
	if n > (len(body)-off)/batchItem {
		return nil, ErrCorrupt
	}

	items := make([]BatchItem, 0, n)
	for i := 0; i < n; i++ {
		if off+batchItem > len(body) {
			return nil, ErrCorrupt
		}
		seq := binary.BigEndian.Uint64(body[off : off+8])
		off += 8
		vlen := int(binary.BigEndian.Uint32(body[off : off+4]))
		off += 4
		if vlen > len(body)-off { // overflow-safe bound check
			return nil, ErrCorrupt
		}
		items = append(items, BatchItem{Seq: seq, Payload: body[off : off+vlen]})
		off += vlen
	}
	if off != len(body) {
		return nil, ErrCorrupt
	}
	return items, nil
}
