// Package ackmanager implements the ACK Manager: received-packet
// bookkeeping, ACK-range generation, and the ACK-elicitation/frequency
// policy that decides when an ACK must go out immediately.
//
// Grounded on received_packet_handler.go's appDataReceivedPacketTracker
// usage (ReceivedPacket, GetAckFrame, GetAlarmTimeout,
// IsPotentiallyDuplicate) for the handler shape, and
// other_examples/distribution-distribution__acks.go's ackState for the
// ACK-elicitation policy detail (mustAckImmediately / shouldSendAck / range
// coalescing via a range set).
package ackmanager

import (
	"github.com/nimbusnet/qloss/internal/pnset"
	"github.com/nimbusnet/qloss/internal/protocol"
	"github.com/nimbusnet/qloss/internal/qlog"
)

// Constants from RFC 9000 §13.2 / RFC 9002.
const (
	MaxAckDelay           protocol.Milliseconds = 25
	AckFrequencyThreshold                       = 2
)

// Manager tracks received packets for one packet-number space and decides
// when and what to acknowledge.
type Manager struct {
	received map[protocol.PacketNumber]protocol.Milliseconds
	pending  *pnset.Set[protocol.PacketNumber]

	largestReceived     protocol.PacketNumber
	largestReceivedTime protocol.Milliseconds

	ackElicitingReceived int
	ackPending           bool
	ackTimeout           protocol.Milliseconds

	logger qlog.Logger
}

// New returns an empty Manager.
func New(logger qlog.Logger) *Manager {
	if logger == nil {
		logger = qlog.Nop
	}
	m := &Manager{logger: logger}
	m.reset()
	return m
}

func (m *Manager) reset() {
	m.received = make(map[protocol.PacketNumber]protocol.Milliseconds)
	m.pending = pnset.New[protocol.PacketNumber]()
	m.largestReceived = protocol.InvalidPacketNumber
	m.largestReceivedTime = 0
	m.ackElicitingReceived = 0
	m.ackPending = false
	m.ackTimeout = 0
}

// Reset discards all received-packet bookkeeping.
func (m *Manager) Reset() {
	m.reset()
}

// OnPacketReceived records receipt of packet n. Duplicates (n already seen)
// are silent no-ops.
func (m *Manager) OnPacketReceived(n protocol.PacketNumber, recvTime protocol.Milliseconds, ackEliciting bool) error {
	if n < 0 {
		return protocol.ErrInvalidPacketNumber
	}
	if _, dup := m.received[n]; dup {
		return nil
	}

	m.received[n] = recvTime
	m.pending.Add(n)

	if n > m.largestReceived {
		m.largestReceived = n
		m.largestReceivedTime = recvTime
	}

	if ackEliciting {
		m.ackElicitingReceived++
		m.ackPending = true
		m.ackTimeout = recvTime + MaxAckDelay
	}

	if m.logger.Debug() {
		m.logger.Debugf("packet %d received (ack-eliciting=%v)", n, ackEliciting)
	}
	return nil
}

// ShouldSendAckImmediately reports whether an ACK must go out now rather
// than waiting for the delayed-ack timer: either ACK_FREQUENCY_THRESHOLD
// ack-eliciting packets have accumulated, or the delayed-ack timeout has
// elapsed.
func (m *Manager) ShouldSendAckImmediately(now protocol.Milliseconds) bool {
	return m.ackElicitingReceived >= AckFrequencyThreshold || (m.ackPending && now >= m.ackTimeout)
}

// GenerateAckFrame builds an AckFrame covering every pending (unacked-by-us)
// received packet number, coalesced into ranges sorted by descending upper
// endpoint, and clears the pending set and ack-elicitation counters. The
// received-set itself (used for duplicate detection) is left untouched.
func (m *Manager) GenerateAckFrame(now protocol.Milliseconds) (*protocol.AckFrame, bool) {
	if m.pending.Len() == 0 {
		return nil, false
	}

	delay := now - m.largestReceivedTime
	if delay < 0 {
		delay = 0
	}

	ranges := coalesce(m.pending.Sorted())
	for i, j := 0, len(ranges)-1; i < j; i, j = i+1, j-1 {
		ranges[i], ranges[j] = ranges[j], ranges[i]
	}

	frame := &protocol.AckFrame{
		LargestAcked: m.largestReceived,
		AckDelay:     uint64(delay * 1000),
		Ranges:       ranges,
	}

	m.pending = pnset.New[protocol.PacketNumber]()
	m.ackElicitingReceived = 0
	m.ackPending = false
	m.ackTimeout = 0

	return frame, true
}

func coalesce(nums []protocol.PacketNumber) []protocol.AckRange {
	var ranges []protocol.AckRange
	for _, n := range nums {
		if len(ranges) > 0 && ranges[len(ranges)-1].End+1 == n {
			ranges[len(ranges)-1].End = n
		} else {
			ranges = append(ranges, protocol.AckRange{Start: n, End: n})
		}
	}
	return ranges
}

// OnAckSent records that the given ranges were just acknowledged to the
// peer, dropping them from the pending set.
func (m *Manager) OnAckSent(ranges []protocol.AckRange) {
	for _, r := range ranges {
		for n := r.Start; n <= r.End; n++ {
			m.pending.Remove(n)
		}
	}
}

// DetectMissingPackets returns every packet number below largest_received
// that hasn't been seen, ascending.
func (m *Manager) DetectMissingPackets() []protocol.PacketNumber {
	if m.largestReceived <= 0 {
		return nil
	}
	var missing []protocol.PacketNumber
	for n := protocol.PacketNumber(0); n < m.largestReceived; n++ {
		if _, ok := m.received[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing
}

// CleanupOldRecords drops received-packet bookkeeping strictly older than
// cutoff, from both the received-set and the pending-ack set.
func (m *Manager) CleanupOldRecords(cutoff protocol.Milliseconds) {
	for n, t := range m.received {
		if t < cutoff {
			delete(m.received, n)
			m.pending.Remove(n)
		}
	}
}

func (m *Manager) LargestReceived() protocol.PacketNumber { return m.largestReceived }
func (m *Manager) AckTimeout() protocol.Milliseconds      { return m.ackTimeout }
func (m *Manager) AckPending() bool                       { return m.ackPending }

// IsPotentiallyDuplicate reports whether n has already been recorded as
// received.
func (m *Manager) IsPotentiallyDuplicate(n protocol.PacketNumber) bool {
	_, ok := m.received[n]
	return ok
}
