package pitradio

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected is returned when the provider refused to store a transmission.
	ErrRejected = errors.New("pitradio: provider rejected write")
	// ErrInvalidRange is returned by Replay/Export for from > to or oversized spans.
	ErrInvalidRange = errors.New("pitradio: invalid range")
)

// ReceiveError reports a stored transmission whose frames no longer decode.
// The entry is deleted; DelErr is set if that also failed.
type ReceiveError struct {
	Seq       uint64
	DecodeErr error
	DelErr    error
}

func (e *ReceiveError) Error() string {
	switch {
	case e.DecodeErr != nil && e.DelErr != nil:
		return fmt.Sprintf("receive %d failed: frames undecodable and delete failed: decode=%v; delete=%v",
			e.Seq, e.DecodeErr, e.DelErr)
	case e.DecodeErr != nil:
		return fmt.Sprintf("receive %d: frames undecodable: %v", e.Seq, e.DecodeErr)
	case e.DelErr != nil:
		return fmt.Sprintf("receive %d: delete failed: %v", e.Seq, e.DelErr)
	default:
		return fmt.Sprintf("receive %d: unknown error", e.Seq)
	}
}

func (e *ReceiveError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.DecodeErr != nil {
		errs = append(errs, e.DecodeErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}
