package bridge

import (
	"fmt"

	"pkt.systems/owlcore/schema"
)

// ProtocolError describes a malformed or version-incompatible UI message. It
// unwraps to schema.ErrProtocol so callers can match the class without
// caring about the detail.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error {
	return schema.ErrProtocol
}

func protocolErrorf(format string, args ...any) error {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}
