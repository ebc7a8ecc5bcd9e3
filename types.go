// Package qloss is a QUIC loss-detection and recovery core implementing
// RFC 9002: RTT estimation, sent/received packet bookkeeping, packet- and
// time-threshold loss detection, PTO scheduling, and retransmission backoff.
// It owns no socket, no wire codec, and no cryptographic state — callers
// feed it send/receive/ack/timeout events on their own clock and act on the
// Actions it returns.
package qloss

import "github.com/nimbusnet/qloss/internal/protocol"

// PacketNumber identifies a sent or received packet.
type PacketNumber = protocol.PacketNumber

// InvalidPacketNumber marks a largest-acked/largest-sent value that hasn't
// been observed yet.
const InvalidPacketNumber = protocol.InvalidPacketNumber

// Milliseconds is a duration or timestamp on the caller's clock. The core
// never reads wall-clock time itself.
type Milliseconds = protocol.Milliseconds

// Payload is an opaque sent-packet body; the core only asks for its size.
type Payload = protocol.Payload

// AckRange is an inclusive, closed range of acknowledged packet numbers.
type AckRange = protocol.AckRange

// AckFrame is a received (or generated) acknowledgement. AckDelay is always
// microseconds.
type AckFrame = protocol.AckFrame

// The three fail-fast errors this module returns. Match with errors.Is.
var (
	ErrInvalidRTTSample    = protocol.ErrInvalidRTTSample
	ErrInvalidPTOCount     = protocol.ErrInvalidPTOCount
	ErrInvalidPacketNumber = protocol.ErrInvalidPacketNumber
)
