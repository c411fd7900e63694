// Package logrus adapts a *logrus.Entry to pitradio.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/pitradio"
)

var _ pitradio.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New wraps l with an optional component field.
func New(l *logrus.Logger, component string) Logger {
	e := logrus.NewEntry(l)
	if component != "" {
		e = e.WithField("component", component)
	}
	return Logger{E: e}
}

func (l Logger) Debug(msg string, f pitradio.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f pitradio.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f pitradio.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f pitradio.Fields) { l.with(f).Error(msg) }

func (l Logger) with(f pitradio.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	return l.E.WithFields(logrus.Fields(f))
}
