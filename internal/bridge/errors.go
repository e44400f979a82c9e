package bridge

import (
	"errors"
	"fmt"
)

// Per-request failure classes. All of them leave the Bridge usable; only a
// failed Dial is fatal. Callers match with errors.Is / errors.As.
var (
	ErrSend           = errors.New("bridge: send failed")
	ErrReceive        = errors.New("bridge: receive failed")
	ErrEmptyReply     = errors.New("bridge: empty reply")
	ErrMalformedReply = errors.New("bridge: malformed reply")
)

// RemoteError is an explicit failure reported by the EA in the reply body,
// e.g. an unknown symbol or an unsupported indicator.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("bridge: remote error: %s", e.Message)
}
