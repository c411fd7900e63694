// Package prom counts journal hook events with Prometheus collectors.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/pitradio"
)

type Hooks struct {
	selfHeal    *prometheus.CounterVec
	rejected    prometheus.Counter
	seqErrors   *prometheus.CounterVec
	frameErrors prometheus.Counter
}

var _ pitradio.Hooks = (*Hooks)(nil)

// New builds the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Hooks, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	h := &Hooks{
		selfHeal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "pitradio_journal",
			Name:      "self_heal_total",
			Help:      "Stored transmissions deleted on read because they were unusable.",
		}, []string{"reason"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: "pitradio_journal",
			Name:      "provider_rejected_total",
			Help:      "Writes the storage provider refused.",
		}),
		seqErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: "pitradio_journal",
			Name:      "seq_errors_total",
			Help:      "Failed sequence number allocations.",
		}, []string{"ns"}),
		frameErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: "pitradio_journal",
			Name:      "frame_decode_errors_total",
			Help:      "Stored transmissions whose frames did not decode.",
		}),
	}
	for _, c := range []prometheus.Collector{h.selfHeal, h.rejected, h.seqErrors, h.frameErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hooks) SelfHeal(_ string, reason string)   { h.selfHeal.WithLabelValues(reason).Inc() }
func (h *Hooks) ProviderSetRejected(string)         { h.rejected.Inc() }
func (h *Hooks) SeqError(ns string, _ error)        { h.seqErrors.WithLabelValues(ns).Inc() }
func (h *Hooks) FrameDecodeError(_ uint64, _ error) { h.frameErrors.Inc() }
