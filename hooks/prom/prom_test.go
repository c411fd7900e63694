package prom

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := New(reg)
	require.NoError(t, err)

	h.SelfHeal("tx:car44:1", "corrupt")
	h.SelfHeal("tx:car44:2", "corrupt")
	h.SelfHeal("tx:car44:3", "seq_mismatch")
	h.ProviderSetRejected("tx:car44:4")
	h.SeqError("car44", errors.New("down"))
	h.FrameDecodeError(5, errors.New("bad"))
	h.FrameDecodeError(6, errors.New("bad"))

	require.Equal(t, 2.0, testutil.ToFloat64(h.selfHeal.WithLabelValues("corrupt")))
	require.Equal(t, 1.0, testutil.ToFloat64(h.selfHeal.WithLabelValues("seq_mismatch")))
	require.Equal(t, 1.0, testutil.ToFloat64(h.rejected))
	require.Equal(t, 1.0, testutil.ToFloat64(h.seqErrors.WithLabelValues("car44")))
	require.Equal(t, 2.0, testutil.ToFloat64(h.frameErrors))
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	require.Error(t, err)
}
