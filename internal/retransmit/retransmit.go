// Package retransmit implements the Retransmission Manager: it turns lost
// or PTO-probed packets into retransmission records with exponential
// backoff, and folds new acks back into RTT/loss-detector state.
//
// Grounded on sent_packet_handler.go's queueFramesForRetransmission and its
// PTO probe-packet selection (numProbesToSend, QueueProbePacket); the
// backoff/rate-statistics shape is grounded on
// other_examples/goburrow-quic__recovery.go's ptoCount-driven exponential
// PTO backoff (timeout * (1 << ptoCount)), applied here to per-packet
// retransmission backoff instead of the loss-detection timer.
package retransmit

import (
	"math"

	"github.com/nimbusnet/qloss/internal/lossdetect"
	"github.com/nimbusnet/qloss/internal/packettracker"
	"github.com/nimbusnet/qloss/internal/protocol"
	"github.com/nimbusnet/qloss/internal/qlog"
	"github.com/nimbusnet/qloss/internal/rttstats"
)

// Constants from spec.
const (
	MaxRetransmissions = 5
	BackoffBase        = 2.0
)

type attempt struct {
	count                  int
	lastRetransmissionTime protocol.Milliseconds
}

// RetxRecord describes a lost packet ready for retransmission.
type RetxRecord struct {
	PacketNumber      protocol.PacketNumber
	Payload           protocol.Payload
	AttemptCount      int
	BackoffMultiplier float64
}

// ProbeRecord describes a packet selected as a PTO probe.
type ProbeRecord struct {
	PacketNumber        protocol.PacketNumber
	OriginalPayload     protocol.Payload
	RetransmissionCount int
}

// Manager maps lost/probed packet numbers to retransmission bookkeeping.
type Manager struct {
	tracker  *packettracker.Tracker
	rtt      *rttstats.Stats
	detector *lossdetect.Detector

	attempts             map[protocol.PacketNumber]*attempt
	totalRetransmissions uint64

	logger qlog.Logger
}

// New returns a Manager backed by the given components.
func New(tracker *packettracker.Tracker, rtt *rttstats.Stats, detector *lossdetect.Detector, logger qlog.Logger) *Manager {
	if logger == nil {
		logger = qlog.Nop
	}
	return &Manager{
		tracker:  tracker,
		rtt:      rtt,
		detector: detector,
		attempts: make(map[protocol.PacketNumber]*attempt),
		logger:   logger,
	}
}

// OnAckReceived folds a received ack into the packet tracker, updates the
// RTT estimate from the frame's LargestAcked packet when this ack newly
// acknowledges it (no sample is taken otherwise), resets PTO backoff, and
// runs loss detection in the same pass, registering retransmission attempts
// for anything newly declared lost. Returns the newly acked and newly lost
// packet numbers.
func (m *Manager) OnAckReceived(frame protocol.AckFrame, ackTime protocol.Milliseconds) (newlyAcked, lost []protocol.PacketNumber, err error) {
	newlyAcked, _ = m.tracker.OnAckReceived(frame.Ranges, ackTime)

	for _, n := range newlyAcked {
		if n != frame.LargestAcked {
			continue
		}
		rec, ok := m.tracker.GetRecord(n)
		if !ok {
			continue
		}
		sample := ackTime - rec.SentTime
		ackDelayMs := protocol.Milliseconds(frame.AckDelay) / 1000
		if updateErr := m.rtt.UpdateRTT(sample, ackDelayMs); updateErr != nil && m.logger.Debug() {
			m.logger.Debugf("rtt update skipped for packet %d: %v", n, updateErr)
		}
	}

	if len(newlyAcked) == 0 {
		return nil, nil, nil
	}

	m.detector.OnAckReceived()
	lost, _ = m.detector.DetectLostPackets(ackTime)
	for _, n := range lost {
		m.registerAttempt(n, ackTime)
	}
	return newlyAcked, lost, nil
}

func (m *Manager) registerAttempt(n protocol.PacketNumber, now protocol.Milliseconds) {
	a, ok := m.attempts[n]
	if !ok {
		a = &attempt{}
		m.attempts[n] = a
	}
	if a.count >= MaxRetransmissions {
		delete(m.attempts, n)
		return
	}
	a.count++
	a.lastRetransmissionTime = now
	m.totalRetransmissions++
}

func (m *Manager) attemptCount(n protocol.PacketNumber) int {
	if a, ok := m.attempts[n]; ok {
		return a.count
	}
	return 0
}

// OnPTOTimeout delegates to the loss detector's timeout handler. If it
// returns a PTO probe, each selected packet's retransmission attempt is
// recorded and a ProbeRecord is returned for it.
func (m *Manager) OnPTOTimeout(now protocol.Milliseconds) []ProbeRecord {
	result := m.detector.OnLossDetectionTimeout(now)
	if result.Action != lossdetect.ActionPTOProbe {
		return nil
	}
	return m.buildProbes(result.ProbePackets, now)
}

func (m *Manager) buildProbes(records []*packettracker.Record, now protocol.Milliseconds) []ProbeRecord {
	probes := make([]ProbeRecord, 0, len(records))
	for _, rec := range records {
		m.registerAttempt(rec.Number, now)
		probes = append(probes, ProbeRecord{
			PacketNumber:        rec.Number,
			OriginalPayload:     rec.Payload,
			RetransmissionCount: m.attemptCount(rec.Number),
		})
	}
	return probes
}

// OnTimeout fires the loss-detection timer exactly once and registers a
// retransmission attempt for whichever branch fired, returning the
// detector's action alongside the newly lost packets or selected probes.
// Callers driving a single timer (the Recovery facade) should use this
// instead of calling the detector and OnPTOTimeout separately, since that
// would fire the detector's timeout twice for the same deadline.
func (m *Manager) OnTimeout(now protocol.Milliseconds) (action lossdetect.Action, lost []protocol.PacketNumber, probes []ProbeRecord) {
	result := m.detector.OnLossDetectionTimeout(now)
	switch result.Action {
	case lossdetect.ActionLossDetection:
		for _, n := range result.LostPackets {
			m.registerAttempt(n, now)
		}
		return result.Action, result.LostPackets, nil
	case lossdetect.ActionPTOProbe:
		return result.Action, nil, m.buildProbes(result.ProbePackets, now)
	default:
		return result.Action, nil, nil
	}
}

// GetPacketsForRetransmission returns every lost packet still eligible for
// retransmission (attempt count below MaxRetransmissions), with its backoff
// multiplier.
func (m *Manager) GetPacketsForRetransmission() []RetxRecord {
	lost := m.tracker.GetPacketsForRetransmission()
	result := make([]RetxRecord, 0, len(lost))
	for _, rec := range lost {
		count := m.attemptCount(rec.Number)
		if count >= MaxRetransmissions {
			continue
		}
		result = append(result, RetxRecord{
			PacketNumber:      rec.Number,
			Payload:           rec.Payload,
			AttemptCount:      count,
			BackoffMultiplier: math.Pow(BackoffBase, float64(count)),
		})
	}
	return result
}

// CalculateRetransmissionDelay returns smoothed_rtt * BACKOFF_BASE^attempt.
// Negative attempt counts clamp to 0 rather than producing a sub-RTT delay.
func (m *Manager) CalculateRetransmissionDelay(attempt int) protocol.Milliseconds {
	if attempt < 0 {
		attempt = 0
	}
	return m.rtt.SmoothedRTT() * protocol.Milliseconds(math.Pow(BackoffBase, float64(attempt)))
}

// IsInRetransmissionStorm reports whether RetransmissionRate exceeds 0.5.
// Every retransmission attempt counts, so repeated attempts on one packet
// count more than once.
func (m *Manager) IsInRetransmissionStorm() bool {
	return m.RetransmissionRate() > 0.5
}

// RetransmissionRate is total retransmission attempts over largest_sent+1
// (the number of packets sent when numbering starts at 0).
func (m *Manager) RetransmissionRate() float64 {
	denom := float64(m.tracker.LargestSent() + 1)
	if denom <= 0 {
		return 0
	}
	return float64(m.totalRetransmissions) / denom
}

func (m *Manager) TotalRetransmissions() uint64 { return m.totalRetransmissions }

// PurgeRetransmissionsBefore drops retransmission bookkeeping for packets
// whose last retransmission happened strictly before cutoff.
func (m *Manager) PurgeRetransmissionsBefore(cutoff protocol.Milliseconds) {
	for n, a := range m.attempts {
		if a.lastRetransmissionTime < cutoff {
			delete(m.attempts, n)
		}
	}
}

// Reset clears all retransmission bookkeeping.
func (m *Manager) Reset() {
	m.attempts = make(map[protocol.PacketNumber]*attempt)
	m.totalRetransmissions = 0
}
