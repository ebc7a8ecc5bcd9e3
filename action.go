package qloss

import "github.com/nimbusnet/qloss/internal/retransmit"

// RetxRecord describes a lost packet ready for retransmission.
type RetxRecord = retransmit.RetxRecord

// ProbeRecord describes a packet selected as a PTO probe.
type ProbeRecord = retransmit.ProbeRecord

// ActionKind discriminates the concrete type behind an Action without an
// import of this package's action types, for callers that'd rather switch
// on a plain value.
type ActionKind int

const (
	ActionRetransmitLost ActionKind = iota
	ActionPTOProbe
	ActionSendAck
)

func (k ActionKind) String() string {
	switch k {
	case ActionRetransmitLost:
		return "retransmit_lost"
	case ActionPTOProbe:
		return "pto_probe"
	case ActionSendAck:
		return "send_ack"
	default:
		return "unknown"
	}
}

// Action is the sum type OnTimeout returns: one of RetransmitLost,
// PTOProbe, or SendAck.
type Action interface {
	Kind() ActionKind
}

// RetransmitLost is emitted when the loss-detection timer fires and
// packets were declared lost.
type RetransmitLost struct {
	Packets []PacketNumber
}

func (RetransmitLost) Kind() ActionKind { return ActionRetransmitLost }

// PTOProbe is emitted when a probe timeout fires with nothing newly lost.
type PTOProbe struct {
	Packets []ProbeRecord
}

func (PTOProbe) Kind() ActionKind { return ActionPTOProbe }

// SendAck is emitted when the delayed-ack timer fires.
type SendAck struct {
	Frame AckFrame
}

func (SendAck) Kind() ActionKind { return ActionSendAck }
