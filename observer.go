package qloss

// PacketEvent is the payload delivered to a PacketObserver.
type PacketEvent struct {
	PacketNumber PacketNumber
	Size         int
	AckEliciting bool
	SentTime     Milliseconds
	EventTime    Milliseconds
}

// PacketObserver is an optional hook receiving sent/acked/lost
// notifications, the seam an external congestion controller would attach
// to — this module implements loss detection and recovery, not congestion
// control, and never ships one. Grounded on packet.go's PacketObserver
// interface.
type PacketObserver interface {
	OnPacketSent(PacketEvent)
	OnPacketAcked(PacketEvent)
	OnPacketLost(PacketEvent)
}
