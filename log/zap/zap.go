// Package zap adapts a *zap.Logger to pitradio.Logger.
package zap

import (
	"sort"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/pitradio"
)

var _ pitradio.Logger = Logger{}

type Logger struct{ L *zap.Logger }

func (z Logger) Debug(msg string, f pitradio.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f pitradio.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f pitradio.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f pitradio.Fields) { z.L.Error(msg, fields(f)...) }

// fields emits keys in sorted order so lines are stable across runs.
func fields(f pitradio.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		switch v := f[k].(type) {
		case error:
			out = append(out, zap.NamedError(k, v))
		case string:
			out = append(out, zap.String(k, v))
		case uint64:
			out = append(out, zap.Uint64(k, v))
		case int:
			out = append(out, zap.Int(k, v))
		default:
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}
