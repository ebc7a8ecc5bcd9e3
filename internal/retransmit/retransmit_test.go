package retransmit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nimbusnet/qloss/internal/lossdetect"
	"github.com/nimbusnet/qloss/internal/packettracker"
	"github.com/nimbusnet/qloss/internal/protocol"
	"github.com/nimbusnet/qloss/internal/qlog"
	"github.com/nimbusnet/qloss/internal/rttstats"
)

type fakePayload struct{ size int }

func (f fakePayload) SizeInBytes() int { return f.size }

func newFixture() (*rttstats.Stats, *packettracker.Tracker, *lossdetect.Detector, *Manager) {
	rtt := rttstats.NewDefault(qlog.Nop)
	tracker := packettracker.New(qlog.Nop)
	detector := lossdetect.New(rtt, tracker, qlog.Nop)
	mgr := New(tracker, rtt, detector, qlog.Nop)
	return rtt, tracker, detector, mgr
}

func TestOnAckReceivedUpdatesRTTFromLargestAcked(t *testing.T) {
	rtt, tracker, _, mgr := newFixture()
	require.NoError(t, tracker.OnPacketSent(1, fakePayload{10}, 1000, true))

	acked, lost, err := mgr.OnAckReceived(protocol.AckFrame{LargestAcked: 1, AckDelay: 0, Ranges: []protocol.AckRange{{Start: 1, End: 1}}}, 1100)
	require.NoError(t, err)
	require.Equal(t, []protocol.PacketNumber{1}, acked)
	require.Empty(t, lost)

	require.EqualValues(t, 100, rtt.LatestRTT())
}

func TestOnAckReceivedNoopWhenNothingNewlyAcked(t *testing.T) {
	_, tracker, _, mgr := newFixture()
	require.NoError(t, tracker.OnPacketSent(1, fakePayload{10}, 1000, true))
	tracker.OnAckReceived([]protocol.AckRange{{Start: 1, End: 1}}, 1100)

	acked, lost, err := mgr.OnAckReceived(protocol.AckFrame{LargestAcked: 1, Ranges: []protocol.AckRange{{Start: 1, End: 1}}}, 1200)
	require.NoError(t, err)
	require.Empty(t, acked)
	require.Empty(t, lost)
}

func TestOnAckReceivedRegistersRetransmissionAttemptsForNewlyLost(t *testing.T) {
	_, tracker, _, mgr := newFixture()
	for n := protocol.PacketNumber(1); n <= 10; n++ {
		require.NoError(t, tracker.OnPacketSent(n, fakePayload{10}, protocol.Milliseconds(1000+int64(n)), true))
	}

	_, lost, err := mgr.OnAckReceived(protocol.AckFrame{LargestAcked: 10, Ranges: []protocol.AckRange{{Start: 10, End: 10}}}, 1011)
	require.NoError(t, err)
	require.NotEmpty(t, lost)

	records := mgr.GetPacketsForRetransmission()
	require.Len(t, records, len(lost))
	for _, r := range records {
		// on_ack_received already registered one retransmission attempt for
		// each newly-lost packet in the same pass.
		require.Equal(t, 1, r.AttemptCount)
		require.Equal(t, 2.0, r.BackoffMultiplier)
	}
}

func TestOnPTOTimeoutRecordsProbes(t *testing.T) {
	_, tracker, _, mgr := newFixture()
	require.NoError(t, tracker.OnPacketSent(1, fakePayload{10}, 900, true))

	probes := mgr.OnPTOTimeout(2000)
	require.Len(t, probes, 1)
	require.EqualValues(t, 1, probes[0].PacketNumber)
	require.Equal(t, 1, probes[0].RetransmissionCount)
}

func TestGetPacketsForRetransmissionExcludesExhausted(t *testing.T) {
	_, tracker, _, mgr := newFixture()
	require.NoError(t, tracker.OnPacketSent(1, fakePayload{10}, 1000, true))
	tracker.OnPacketLost(1)

	for i := 0; i < MaxRetransmissions; i++ {
		mgr.registerAttempt(1, protocol.Milliseconds(1000+i))
	}

	require.Empty(t, mgr.GetPacketsForRetransmission())
}

func TestCalculateRetransmissionDelayClampsNegativeAttempt(t *testing.T) {
	rtt, _, _, mgr := newFixture()
	require.NoError(t, rtt.UpdateRTT(100, 0))

	require.EqualValues(t, rtt.SmoothedRTT(), mgr.CalculateRetransmissionDelay(-3))
	require.EqualValues(t, rtt.SmoothedRTT(), mgr.CalculateRetransmissionDelay(0))
	require.EqualValues(t, rtt.SmoothedRTT()*2, mgr.CalculateRetransmissionDelay(1))
}

func TestIsInRetransmissionStorm(t *testing.T) {
	_, tracker, _, mgr := newFixture()
	require.NoError(t, tracker.OnPacketSent(1, fakePayload{10}, 1000, true))
	require.False(t, mgr.IsInRetransmissionStorm())

	mgr.registerAttempt(1, 1100)
	require.False(t, mgr.IsInRetransmissionStorm()) // 1 retransmission / (largest_sent+1 = 2) = 0.5, not > 0.5

	mgr.registerAttempt(1, 1200) // second attempt on the same packet
	require.True(t, mgr.IsInRetransmissionStorm()) // 2 retransmissions / (largest_sent+1 = 2) = 1.0 > 0.5
}

func TestPurgeRetransmissionsBeforeCutoff(t *testing.T) {
	_, _, _, mgr := newFixture()
	mgr.registerAttempt(1, 1000)
	mgr.registerAttempt(2, 5000)

	mgr.PurgeRetransmissionsBefore(4000)

	require.Equal(t, 0, mgr.attemptCount(1))
	require.Equal(t, 1, mgr.attemptCount(2))
}

func TestResetClearsBookkeeping(t *testing.T) {
	_, _, _, mgr := newFixture()
	mgr.registerAttempt(1, 1000)
	require.NotZero(t, mgr.TotalRetransmissions())

	mgr.Reset()
	require.Zero(t, mgr.TotalRetransmissions())
	require.Equal(t, 0, mgr.attemptCount(1))
}
