// Package packettracker implements the Packet Tracker: in-flight
// sent-packet bookkeeping, ACK folding, loss marking, and the outstanding
// ack-eliciting-packet-count invariant.
//
// Grounded on sent_packet_handler.go's packetNumberSpace.history
// (sentPacketHistory): SentPacket, Packets() (ascending iteration), Remove,
// DeclareLost, HasOutstandingPackets, FirstOutstanding — simplified here to
// a single packet-number space with no encryption levels and no path IDs,
// per this core's narrower scope.
package packettracker

import (
	"sort"

	"github.com/nimbusnet/qloss/internal/protocol"
	"github.com/nimbusnet/qloss/internal/qlog"
)

// PacketThreshold is the packet-threshold loss-detection constant from
// RFC 9002 §6.1.1.
const PacketThreshold protocol.PacketNumber = 3

// Status is the lifecycle state of a sent-packet record.
type Status int

const (
	StatusInFlight Status = iota
	StatusAcked
	StatusLost
)

// Record is a single sent-packet's bookkeeping entry.
type Record struct {
	Number       protocol.PacketNumber
	Payload      protocol.Payload
	SentTime     protocol.Milliseconds
	AckEliciting bool
	Size         int
	Status       Status
}

// Tracker holds the sent-packet records for one packet-number space.
type Tracker struct {
	records  map[protocol.PacketNumber]*Record
	ackedSet map[protocol.PacketNumber]struct{}

	largestAcked protocol.PacketNumber
	largestSent  protocol.PacketNumber
	outstanding  int

	timeOfLastSentAckEliciting protocol.Milliseconds

	logger qlog.Logger
}

// New returns an empty Tracker.
func New(logger qlog.Logger) *Tracker {
	if logger == nil {
		logger = qlog.Nop
	}
	t := &Tracker{logger: logger}
	t.reset()
	return t
}

func (t *Tracker) reset() {
	t.records = make(map[protocol.PacketNumber]*Record)
	t.ackedSet = make(map[protocol.PacketNumber]struct{})
	t.largestAcked = protocol.InvalidPacketNumber
	t.largestSent = protocol.InvalidPacketNumber
	t.outstanding = 0
	t.timeOfLastSentAckEliciting = 0
}

// Reset discards all bookkeeping, returning the Tracker to its initial state.
func (t *Tracker) Reset() {
	t.reset()
}

// OnPacketSent records a newly sent packet. Re-sending the same number
// overwrites the prior record at that number, correcting the outstanding
// count if the prior record was still in flight.
func (t *Tracker) OnPacketSent(n protocol.PacketNumber, payload protocol.Payload, sentTime protocol.Milliseconds, ackEliciting bool) error {
	if n < 0 {
		return protocol.ErrInvalidPacketNumber
	}

	size := 0
	if payload != nil {
		size = payload.SizeInBytes()
	}

	if prior, ok := t.records[n]; ok && prior.Status == StatusInFlight && prior.AckEliciting {
		t.outstanding--
	}

	t.records[n] = &Record{
		Number:       n,
		Payload:      payload,
		SentTime:     sentTime,
		AckEliciting: ackEliciting,
		Size:         size,
		Status:       StatusInFlight,
	}

	if n > t.largestSent {
		t.largestSent = n
	}
	if ackEliciting {
		t.outstanding++
		t.timeOfLastSentAckEliciting = sentTime
	}

	if t.logger.Debug() {
		t.logger.Debugf("packet %d sent (ack-eliciting=%v, size=%d)", n, ackEliciting, size)
	}
	return nil
}

// OnAckReceived folds the given ranges into the tracker's state. A record
// already Acked or Lost is left untouched — once lost, a packet is never
// acked again. Returns the packet numbers that transitioned to Acked in
// this call (ascending order) and whether any of them were ack-eliciting.
func (t *Tracker) OnAckReceived(ranges []protocol.AckRange, ackTime protocol.Milliseconds) (newlyAcked []protocol.PacketNumber, ackElicitingAcked bool) {
	maxAcked := protocol.InvalidPacketNumber

	for _, r := range ranges {
		if r.End < r.Start {
			continue
		}
		for n := r.Start; n <= r.End; n++ {
			rec, ok := t.records[n]
			if !ok || rec.Status != StatusInFlight {
				continue
			}
			rec.Status = StatusAcked
			t.ackedSet[n] = struct{}{}
			newlyAcked = append(newlyAcked, n)
			if rec.AckEliciting {
				t.outstanding--
				ackElicitingAcked = true
			}
			if n > maxAcked {
				maxAcked = n
			}
		}
	}

	if maxAcked > t.largestAcked {
		t.largestAcked = maxAcked
	}

	sort.Slice(newlyAcked, func(i, j int) bool { return newlyAcked[i] < newlyAcked[j] })
	return newlyAcked, ackElicitingAcked
}

// OnPacketLost marks n lost. A no-op if n is unknown or already
// acked/lost.
func (t *Tracker) OnPacketLost(n protocol.PacketNumber) {
	rec, ok := t.records[n]
	if !ok || rec.Status != StatusInFlight {
		return
	}
	rec.Status = StatusLost
	if rec.AckEliciting {
		t.outstanding--
	}
	if t.logger.Debug() {
		t.logger.Debugf("packet %d marked lost", n)
	}
}

// DetectLostPackets applies the packet- and time-threshold tests directly
// with the caller-supplied lossDelay (the Loss Detector does not call this;
// it runs its own pass with its computed loss delay; exposed here since
// that's the operation spec.md names on the Packet Tracker itself). Returns
// the newly lost packet numbers, ascending, lower numbers first on ties.
func (t *Tracker) DetectLostPackets(lossDelay, now protocol.Milliseconds) []protocol.PacketNumber {
	if t.largestAcked < 0 {
		return nil
	}

	var lost []protocol.PacketNumber
	for n, rec := range t.records {
		if rec.Status != StatusInFlight || n > t.largestAcked {
			continue
		}
		if (t.largestAcked-n) >= PacketThreshold || (now-rec.SentTime) >= lossDelay {
			lost = append(lost, n)
		}
	}
	sort.Slice(lost, func(i, j int) bool { return lost[i] < lost[j] })
	for _, n := range lost {
		t.OnPacketLost(n)
	}
	return lost
}

func (t *Tracker) LargestAcked() protocol.PacketNumber { return t.largestAcked }
func (t *Tracker) LargestSent() protocol.PacketNumber  { return t.largestSent }
func (t *Tracker) Outstanding() int                    { return t.outstanding }
func (t *Tracker) TimeOfLastSentAckEliciting() protocol.Milliseconds {
	return t.timeOfLastSentAckEliciting
}

func (t *Tracker) IsAcked(n protocol.PacketNumber) bool {
	_, ok := t.ackedSet[n]
	return ok
}

func (t *Tracker) IsLost(n protocol.PacketNumber) bool {
	rec, ok := t.records[n]
	return ok && rec.Status == StatusLost
}

// HasUnacked reports whether the largest sent packet number differs from
// the largest acked one.
func (t *Tracker) HasUnacked() bool {
	return t.largestSent != t.largestAcked
}

// GetRecord returns the record for n, if still present.
func (t *Tracker) GetRecord(n protocol.PacketNumber) (*Record, bool) {
	rec, ok := t.records[n]
	return rec, ok
}

// GetSentPackets returns every record still held, ascending by number.
func (t *Tracker) GetSentPackets() []*Record {
	return t.filterSorted(func(*Record) bool { return true })
}

// GetUnackedPackets returns in-flight records, ascending by number.
func (t *Tracker) GetUnackedPackets() []*Record {
	return t.filterSorted(func(r *Record) bool { return r.Status == StatusInFlight })
}

// GetPacketsForRetransmission returns lost records, ascending by number.
func (t *Tracker) GetPacketsForRetransmission() []*Record {
	return t.filterSorted(func(r *Record) bool { return r.Status == StatusLost })
}

func (t *Tracker) filterSorted(keep func(*Record) bool) []*Record {
	out := make([]*Record, 0, len(t.records))
	for _, rec := range t.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// CleanupAckedPackets sweeps acked records out of the primary store. The
// acked-set used by IsAcked survives this sweep.
func (t *Tracker) CleanupAckedPackets() {
	for n, rec := range t.records {
		if rec.Status == StatusAcked {
			delete(t.records, n)
		}
	}
}

// PurgeLostBefore removes lost records sent before cutoff, the explicit
// retransmission-records purge spec.md's lifecycle section describes.
func (t *Tracker) PurgeLostBefore(cutoff protocol.Milliseconds) {
	for n, rec := range t.records {
		if rec.Status == StatusLost && rec.SentTime < cutoff {
			delete(t.records, n)
		}
	}
}
