package protocol

import "errors"

// The three fail-fast errors a caller of the recovery core can match with
// errors.Is. Every other malformed-but-plausible input (duplicate acks,
// loss-marking an unknown packet number, acking a number never sent) is a
// silent no-op rather than an error, tolerating reordering and duplication
// the way a QUIC endpoint must.
var (
	ErrInvalidRTTSample    = errors.New("qloss: rtt sample must be > 0")
	ErrInvalidPTOCount     = errors.New("qloss: pto count must be >= 0")
	ErrInvalidPacketNumber = errors.New("qloss: packet number must be >= 0")
)
