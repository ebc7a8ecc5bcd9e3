// Package protocol holds the wire-level types shared across the recovery
// core's internal packages. It has no dependencies of its own so that every
// other internal package, and the root qloss package, can import it without
// creating a cycle.
package protocol

// PacketNumber identifies a sent or received packet. Packet numbers are
// never negative except for the InvalidPacketNumber sentinel.
type PacketNumber int64

// InvalidPacketNumber marks a largest-acked/largest-sent value that hasn't
// been observed yet.
const InvalidPacketNumber PacketNumber = -1

// Milliseconds is a duration or timestamp on the caller's clock. The
// recovery core never reads wall-clock time itself; every operation that
// needs "now" receives it as an argument.
type Milliseconds float64

// Payload is an opaque sent-packet body. The core only ever asks for its
// size; it never inspects or type-asserts the contents.
type Payload interface {
	SizeInBytes() int
}

// AckRange is an inclusive, closed range of acknowledged packet numbers.
type AckRange struct {
	Start PacketNumber
	End   PacketNumber
}

// AckFrame is a received (or generated) acknowledgement. AckDelay is always
// in microseconds, both on input from a peer and on output from
// GenerateAckFrame.
type AckFrame struct {
	LargestAcked PacketNumber
	AckDelay     uint64
	Ranges       []AckRange
}
