package qloss

import (
	"github.com/nimbusnet/qloss/internal/ackmanager"
	"github.com/nimbusnet/qloss/internal/lossdetect"
	"github.com/nimbusnet/qloss/internal/packettracker"
	"github.com/nimbusnet/qloss/internal/qlog"
	"github.com/nimbusnet/qloss/internal/retransmit"
	"github.com/nimbusnet/qloss/internal/rttstats"
)

// cleanupHorizon is how far back Cleanup purges bookkeeping (5 minutes of
// caller clock, a long-lived-state retention window for a single
// connection's packet-number space).
const cleanupHorizon Milliseconds = 300_000

// Recovery is the Recovery Facade: the single entry point a caller drives
// with send/receive/ack/timeout events on its own clock. It sequences the
// RTT Estimator, Packet Tracker, Loss Detector, ACK Manager, and
// Retransmission Manager, and owns no socket, no wire codec, and no
// cryptographic state of its own.
//
// Grounded on multipath_controller.go's facade/constructor-with-functional-
// options shape (NewDefaultXxx(...), getter methods returning plain
// structs) and sent_packet_handler.go's SentPacket/ReceivedAck/
// OnLossDetectionTimeout call-order sequencing.
type Recovery struct {
	rtt      *rttstats.Stats
	tracker  *packettracker.Tracker
	detector *lossdetect.Detector
	acks     *ackmanager.Manager
	retx     *retransmit.Manager

	nextTimeout Milliseconds
	observer    PacketObserver
	logger      qlog.Logger
}

// New constructs a Recovery, optionally configured with Option values.
func New(opts ...Option) *Recovery {
	c := defaultConfig()
	for _, opt := range opts {
		opt(c)
	}

	rtt := rttstats.New(c.initialRTT, c.logger)
	tracker := packettracker.New(c.logger)
	detector := lossdetect.New(rtt, tracker, c.logger)
	acks := ackmanager.New(c.logger)
	retx := retransmit.New(tracker, rtt, detector, c.logger)

	return &Recovery{
		rtt:      rtt,
		tracker:  tracker,
		detector: detector,
		acks:     acks,
		retx:     retx,
		logger:   c.logger,
	}
}

// SetPacketObserver installs (or removes, with nil) the hook that receives
// sent/acked/lost notifications.
func (r *Recovery) SetPacketObserver(o PacketObserver) {
	r.observer = o
}

// OnPacketSent records a newly sent packet and rearms the loss-detection
// timer.
func (r *Recovery) OnPacketSent(n PacketNumber, payload Payload, sentTime Milliseconds, ackEliciting bool) error {
	if err := r.tracker.OnPacketSent(n, payload, sentTime, ackEliciting); err != nil {
		return err
	}
	if r.observer != nil {
		r.observer.OnPacketSent(PacketEvent{
			PacketNumber: n,
			Size:         payloadSize(payload),
			AckEliciting: ackEliciting,
			SentTime:     sentTime,
			EventTime:    sentTime,
		})
	}
	r.recomputeTimeout(sentTime)
	return nil
}

// OnPacketReceived records receipt of a packet for ACK-generation purposes.
// It does not itself trigger sending an ACK; call ShouldSendAckImmediately,
// or OnTimeout once the delayed-ack deadline (Stats().AckManager.AckTimeout)
// has passed. NextTimeout does not include that deadline.
func (r *Recovery) OnPacketReceived(n PacketNumber, recvTime Milliseconds, ackEliciting bool) error {
	return r.acks.OnPacketReceived(n, recvTime, ackEliciting)
}

// OnAckReceived folds a received ACK frame into RTT and loss-detection
// state, notifying the observer of any newly acked or newly lost packets.
func (r *Recovery) OnAckReceived(frame AckFrame, ackTime Milliseconds) error {
	acked, lost, err := r.retx.OnAckReceived(frame, ackTime)
	if err != nil {
		return err
	}
	if r.observer != nil {
		for _, n := range acked {
			r.observer.OnPacketAcked(PacketEvent{PacketNumber: n, EventTime: ackTime})
		}
		for _, n := range lost {
			r.observer.OnPacketLost(PacketEvent{PacketNumber: n, EventTime: ackTime})
		}
	}
	r.recomputeTimeout(ackTime)
	return nil
}

// ShouldSendAckImmediately reports whether an ACK must go out now.
func (r *Recovery) ShouldSendAckImmediately(now Milliseconds) bool {
	return r.acks.ShouldSendAckImmediately(now)
}

// GenerateAckFrame builds an ACK frame covering every pending received
// packet, or (nil, false) if there's nothing to acknowledge.
func (r *Recovery) GenerateAckFrame(now Milliseconds) (*AckFrame, bool) {
	return r.acks.GenerateAckFrame(now)
}

// OnTimeout fires whatever timer(s) have elapsed as of now and returns the
// resulting Actions, in order: at most one loss-detection/PTO action,
// followed by at most one delayed-ack action.
func (r *Recovery) OnTimeout(now Milliseconds) []Action {
	var actions []Action

	if r.nextTimeout > 0 && now >= r.nextTimeout {
		action, lost, probes := r.retx.OnTimeout(now)
		switch action {
		case lossdetect.ActionLossDetection:
			actions = append(actions, RetransmitLost{Packets: lost})
			if r.observer != nil {
				for _, n := range lost {
					r.observer.OnPacketLost(PacketEvent{PacketNumber: n, EventTime: now})
				}
			}
		case lossdetect.ActionPTOProbe:
			actions = append(actions, PTOProbe{Packets: probes})
		}
		r.recomputeTimeout(now)
	}

	if r.acks.AckPending() && r.acks.AckTimeout() > 0 && now >= r.acks.AckTimeout() {
		if frame, ok := r.acks.GenerateAckFrame(now); ok {
			actions = append(actions, SendAck{Frame: *frame})
		}
	}

	return actions
}

func (r *Recovery) recomputeTimeout(now Milliseconds) {
	r.nextTimeout = r.detector.CalculateLossDetectionTimeout(now)
}

// NextTimeout is the absolute deadline, on the caller's clock, at which
// OnTimeout should next be called for loss detection/PTO purposes. 0 means
// no timer is armed.
func (r *Recovery) NextTimeout() Milliseconds {
	return r.nextTimeout
}

// GetPacketsForRetransmission returns every lost packet still eligible for
// retransmission, with its backoff multiplier.
func (r *Recovery) GetPacketsForRetransmission() []RetxRecord {
	return r.retx.GetPacketsForRetransmission()
}

// Cleanup sweeps acknowledged sent-packet records and purges bookkeeping
// older than the retention horizon, relative to now. Call periodically, not
// on every event.
func (r *Recovery) Cleanup(now Milliseconds) {
	r.tracker.CleanupAckedPackets()
	r.tracker.PurgeLostBefore(now - cleanupHorizon)
	r.acks.CleanupOldRecords(now - cleanupHorizon)
	r.retx.PurgeRetransmissionsBefore(now - cleanupHorizon)
}

// Reset discards all per-connection state, as after a QUIC Retry or a path
// migration that invalidates in-flight bookkeeping.
func (r *Recovery) Reset() {
	r.rtt.Reset()
	r.tracker.Reset()
	r.detector.Reset()
	r.acks.Reset()
	r.retx.Reset()
	r.nextTimeout = 0
}

// CongestionAdvice summarizes recovery health for a caller-supplied
// congestion controller that doesn't want to inspect Stats itself.
func (r *Recovery) CongestionAdvice() string {
	switch {
	case r.detector.IsInPersistentCongestion():
		return "persistent_congestion"
	case r.retx.IsInRetransmissionStorm():
		return "retransmission_storm"
	case r.retx.RetransmissionRate() > 0.1:
		return "high_loss_rate"
	default:
		return "normal"
	}
}

// IsConnectionHealthy is a boolean simplification of CongestionAdvice.
func (r *Recovery) IsConnectionHealthy() bool {
	return r.CongestionAdvice() == "normal"
}

// Stats snapshots every component's counters.
func (r *Recovery) Stats() Stats {
	return Stats{
		RTT: RTTStatistics{
			SmoothedRTT:  r.rtt.SmoothedRTT(),
			RTTVariation: r.rtt.RTTVariation(),
			MinRTT:       r.rtt.MinRTT(),
			LatestRTT:    r.rtt.LatestRTT(),
			SampleCount:  r.rtt.SampleCount(),
		},
		PacketTracker: PacketTrackerStatistics{
			LargestSent:  r.tracker.LargestSent(),
			LargestAcked: r.tracker.LargestAcked(),
			Outstanding:  r.tracker.Outstanding(),
		},
		LossDetection: LossDetectionStatistics{
			PTOCount:             r.detector.PTOCount(),
			LossTime:             r.detector.LossTime(),
			PersistentCongestion: r.detector.IsInPersistentCongestion(),
		},
		AckManager: AckManagerStatistics{
			LargestReceived: r.acks.LargestReceived(),
			AckPending:      r.acks.AckPending(),
			AckTimeout:      r.acks.AckTimeout(),
		},
		Retransmission: RetransmissionStatistics{
			TotalRetransmissions: r.retx.TotalRetransmissions(),
			RetransmissionRate:   r.retx.RetransmissionRate(),
			InStorm:              r.retx.IsInRetransmissionStorm(),
		},
		NextTimeout: r.nextTimeout,
	}
}

func payloadSize(p Payload) int {
	if p == nil {
		return 0
	}
	return p.SizeInBytes()
}
