package pitradio

// Fields carries structured context for a log line.
type Fields map[string]any

// Logger is the leveled logging surface the journal writes to. Adapters for
// zap, logrus, zerolog and slog live under log/. A nil Logger in Options
// disables logging.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

type NopLogger struct{}

func (NopLogger) Debug(string, Fields) {}
func (NopLogger) Info(string, Fields)  {}
func (NopLogger) Warn(string, Fields)  {}
func (NopLogger) Error(string, Fields) {}

// txFields is the common field set for one transmission.
func txFields(ns string, seq uint64) Fields {
	return Fields{"ns": ns, "seq": seq}
}
