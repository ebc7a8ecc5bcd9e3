// Package lossdetect implements the Loss Detector: packet- and
// time-threshold loss detection, PTO scheduling and backoff, and persistent
// congestion detection, per RFC 9002 §6-§7.
//
// Grounded on sent_packet_handler.go's detectLostPackets (packet threshold
// via history.Difference(...) >= packetThreshold, time threshold via
// timeThreshold = 9.0/8, lossTime tracking) and
// onLossDetectionTimeout/getPTOTimeAndSpace, cross-checked against
// other_examples/goburrow-quic__recovery.go's detectLostPackets /
// setLossDetectionTimer, which is structurally the single-packet-number-space
// version of the same algorithm.
package lossdetect

import (
	"sort"

	"github.com/nimbusnet/qloss/internal/packettracker"
	"github.com/nimbusnet/qloss/internal/protocol"
	"github.com/nimbusnet/qloss/internal/qlog"
	"github.com/nimbusnet/qloss/internal/rttstats"
)

// Constants from RFC 9002 §6.1.2 and §7.6.
const TimeThreshold = 9.0 / 8.0

const (
	MinTimeThreshold             protocol.Milliseconds = 1
	PersistentCongestionPTOCount                        = 3
)

// Action discriminates the outcome of OnLossDetectionTimeout.
type Action int

const (
	ActionNone Action = iota
	ActionLossDetection
	ActionPTOProbe
)

// TimeoutResult is what firing the loss-detection timer produced.
type TimeoutResult struct {
	Action       Action
	LostPackets  []protocol.PacketNumber
	ProbePackets []*packettracker.Record
}

// Detector drives loss detection for a single packet-number space, reading
// RTT state from an rttstats.Stats and sent-packet state from a
// packettracker.Tracker.
type Detector struct {
	rtt     *rttstats.Stats
	tracker *packettracker.Tracker

	ptoCount int
	lossTime protocol.Milliseconds // 0 means "no pending loss timer"

	logger qlog.Logger
}

// New returns a Detector over the given RTT estimator and packet tracker.
func New(rtt *rttstats.Stats, tracker *packettracker.Tracker, logger qlog.Logger) *Detector {
	if logger == nil {
		logger = qlog.Nop
	}
	return &Detector{rtt: rtt, tracker: tracker, logger: logger}
}

// LossDelay is the time-threshold window: max(latest_rtt, smoothed_rtt) *
// TIME_THRESHOLD, floored at MIN_TIME_THRESHOLD.
func (d *Detector) LossDelay() protocol.Milliseconds {
	maxRTT := maxMs(d.rtt.LatestRTT(), d.rtt.SmoothedRTT())
	delay := protocol.Milliseconds(TimeThreshold) * maxRTT
	return maxMs(delay, MinTimeThreshold)
}

// DetectLostPackets applies the packet- and time-threshold tests to every
// in-flight packet at or below largest_acked, marking losers via the
// tracker in the same pass. Returns the newly lost packet numbers
// (ascending, lower numbers win ties) and the next pending loss-timer
// deadline (0 if none).
func (d *Detector) DetectLostPackets(now protocol.Milliseconds) (lost []protocol.PacketNumber, nextLossTime protocol.Milliseconds) {
	largestAcked := d.tracker.LargestAcked()
	if largestAcked < 0 {
		d.lossTime = 0
		return nil, 0
	}

	lossDelay := d.LossDelay()
	var next protocol.Milliseconds

	for _, rec := range d.tracker.GetUnackedPackets() {
		if rec.Number > largestAcked {
			continue
		}
		if (largestAcked-rec.Number) >= packettracker.PacketThreshold || (now-rec.SentTime) >= lossDelay {
			d.tracker.OnPacketLost(rec.Number)
			lost = append(lost, rec.Number)
			if d.logger.Debug() {
				d.logger.Debugf("packet %d declared lost (largest_acked=%d)", rec.Number, largestAcked)
			}
		} else {
			expected := rec.SentTime + lossDelay
			if next == 0 || expected < next {
				next = expected
			}
		}
	}

	sort.Slice(lost, func(i, j int) bool { return lost[i] < lost[j] })
	d.lossTime = next
	return lost, next
}

// CalculateLossDetectionTimeout returns the absolute deadline at which
// OnLossDetectionTimeout should next fire, or 0 if there's nothing
// outstanding to arm a timer for.
func (d *Detector) CalculateLossDetectionTimeout(now protocol.Milliseconds) protocol.Milliseconds {
	if d.lossTime > 0 && d.lossTime > now {
		return d.lossTime
	}
	if d.tracker.Outstanding() == 0 {
		return 0
	}
	basePTO, _ := d.rtt.CalculatePTO(d.ptoCount)
	last := d.tracker.TimeOfLastSentAckEliciting()
	if last == 0 {
		return now + basePTO
	}
	return last + basePTO
}

// OnLossDetectionTimeout fires the timer armed by CalculateLossDetectionTimeout.
// If a loss-time deadline has passed, it runs loss detection; otherwise it's
// a PTO and the probe-packet set (up to 2, oldest first) is selected.
func (d *Detector) OnLossDetectionTimeout(now protocol.Milliseconds) TimeoutResult {
	if d.lossTime > 0 && now >= d.lossTime {
		lost, _ := d.DetectLostPackets(now)
		return TimeoutResult{Action: ActionLossDetection, LostPackets: lost}
	}

	d.ptoCount++
	if d.logger.Debug() {
		d.logger.Debugf("pto fired, count=%d", d.ptoCount)
	}
	return TimeoutResult{Action: ActionPTOProbe, ProbePackets: d.selectProbePackets()}
}

func (d *Detector) selectProbePackets() []*packettracker.Record {
	var candidates []*packettracker.Record
	for _, rec := range d.tracker.GetUnackedPackets() {
		if rec.AckEliciting {
			candidates = append(candidates, rec)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].SentTime < candidates[j].SentTime })
	if len(candidates) > 2 {
		candidates = candidates[:2]
	}
	return candidates
}

// OnAckReceived resets the PTO backoff counter, called whenever an ack
// acknowledges at least one new packet.
func (d *Detector) OnAckReceived() {
	d.ptoCount = 0
}

func (d *Detector) PTOCount() int                   { return d.ptoCount }
func (d *Detector) LossTime() protocol.Milliseconds { return d.lossTime }
func (d *Detector) IsInPersistentCongestion() bool  { return d.ptoCount >= PersistentCongestionPTOCount }

// Reset clears PTO and loss-timer state, leaving RTT/tracker state alone.
func (d *Detector) Reset() {
	d.ptoCount = 0
	d.lossTime = 0
}

func maxMs(a, b protocol.Milliseconds) protocol.Milliseconds {
	if a > b {
		return a
	}
	return b
}
