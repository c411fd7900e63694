// Package sloghooks reports journal hook events through log/slog.
package sloghooks

import (
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/unkn0wn-root/pitradio"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery    uint64
	FrameDecodeEvery uint64
	// Optional key redactor. Defaults to an xxhash64 hex digest.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr    atomic.Uint64
	frameDecodeCtr atomic.Uint64
}

var _ pitradio.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	return strconv.FormatUint(xxhash.Sum64String(k), 16)
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("pitradio.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("pitradio.provider_set_rejected",
		"key", h.redact(storageKey))
}

func (h *Hooks) SeqError(ns string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("pitradio.seq_error",
		"ns", ns,
		"err", err)
}

func (h *Hooks) FrameDecodeError(seq uint64, err error) {
	if h.l == nil || !sample(h.opts.FrameDecodeEvery, &h.frameDecodeCtr) {
		return
	}
	h.l.Warn("pitradio.frame_decode_error",
		"seq", seq,
		"err", err)
}
