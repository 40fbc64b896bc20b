package session

import "github.com/google/uuid"

// HeaderCorrelationID is attached to every outbound request and stamped on
// every audit event for cross-system tracing.
const HeaderCorrelationID = "X-Correlation-ID"

// CorrelationID identifies one client lifetime. It is generated once when
// the App is constructed and never rotated while the process lives.
type CorrelationID string

// NewCorrelationID returns a fresh random correlation identifier.
func NewCorrelationID() CorrelationID {
	return CorrelationID(uuid.NewString())
}

func (c CorrelationID) String() string {
	return string(c)
}
