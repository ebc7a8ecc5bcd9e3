package ackmanager

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nimbusnet/qloss/internal/protocol"
	"github.com/nimbusnet/qloss/internal/qlog"
)

func TestOnPacketReceivedRejectsNegative(t *testing.T) {
	m := New(qlog.Nop)
	require.ErrorIs(t, m.OnPacketReceived(-1, 1000, true), protocol.ErrInvalidPacketNumber)
}

func TestOnPacketReceivedDeduplicates(t *testing.T) {
	m := New(qlog.Nop)
	require.NoError(t, m.OnPacketReceived(1, 1000, true))
	require.NoError(t, m.OnPacketReceived(1, 2000, true))

	require.Equal(t, 1, m.ackElicitingReceived)
}

func TestShouldSendAckImmediatelyOnFrequencyThreshold(t *testing.T) {
	m := New(qlog.Nop)
	require.NoError(t, m.OnPacketReceived(1, 1000, true))
	require.False(t, m.ShouldSendAckImmediately(1000))

	require.NoError(t, m.OnPacketReceived(2, 1001, true))
	require.True(t, m.ShouldSendAckImmediately(1001))
}

func TestShouldSendAckImmediatelyOnTimeout(t *testing.T) {
	m := New(qlog.Nop)
	require.NoError(t, m.OnPacketReceived(1, 1000, true))
	require.False(t, m.ShouldSendAckImmediately(1000))
	require.True(t, m.ShouldSendAckImmediately(protocol.Milliseconds(1000+float64(MaxAckDelay))))
}

// ACK coalescing: ranges are coalesced ascending, then emitted descending by
// upper endpoint, with ack_delay encoded in microseconds.
func TestGenerateAckFrameCoalescesRanges(t *testing.T) {
	m := New(qlog.Nop)
	times := map[protocol.PacketNumber]protocol.Milliseconds{1: 1000, 2: 1001, 3: 1002, 7: 1003, 8: 1004, 9: 1005}
	for _, n := range []protocol.PacketNumber{1, 2, 3, 7, 8, 9} {
		require.NoError(t, m.OnPacketReceived(n, times[n], false))
	}

	frame, ok := m.GenerateAckFrame(1010)
	require.True(t, ok)
	require.EqualValues(t, 9, frame.LargestAcked)
	require.EqualValues(t, 5000, frame.AckDelay)
	require.Equal(t, []protocol.AckRange{{Start: 7, End: 9}, {Start: 1, End: 3}}, frame.Ranges)

	// Testable property 8: ranges are pairwise disjoint, a<=b, strictly
	// descending by upper endpoint.
	for i, r := range frame.Ranges {
		require.LessOrEqual(t, r.Start, r.End)
		if i > 0 {
			require.Less(t, frame.Ranges[i].End, frame.Ranges[i-1].End)
		}
	}
}

func TestGenerateAckFrameEmptyWhenNothingPending(t *testing.T) {
	m := New(qlog.Nop)
	_, ok := m.GenerateAckFrame(1000)
	require.False(t, ok)
}

func TestGenerateAckFrameResetsPendingButKeepsReceivedSet(t *testing.T) {
	m := New(qlog.Nop)
	require.NoError(t, m.OnPacketReceived(1, 1000, true))
	_, ok := m.GenerateAckFrame(1000)
	require.True(t, ok)

	require.False(t, m.AckPending())
	require.True(t, m.IsPotentiallyDuplicate(1))

	_, ok = m.GenerateAckFrame(1000)
	require.False(t, ok)
}

func TestOnAckSentClearsOnlyGivenRanges(t *testing.T) {
	m := New(qlog.Nop)
	require.NoError(t, m.OnPacketReceived(1, 1000, false))
	require.NoError(t, m.OnPacketReceived(2, 1001, false))

	m.OnAckSent([]protocol.AckRange{{Start: 1, End: 1}})

	frame, ok := m.GenerateAckFrame(1002)
	require.True(t, ok)
	require.Equal(t, []protocol.AckRange{{Start: 2, End: 2}}, frame.Ranges)
}

func TestDetectMissingPackets(t *testing.T) {
	m := New(qlog.Nop)
	for _, n := range []protocol.PacketNumber{1, 2, 4, 5} {
		require.NoError(t, m.OnPacketReceived(n, 1000, false))
	}

	missing := m.DetectMissingPackets()
	require.Contains(t, missing, protocol.PacketNumber(0))
	require.Contains(t, missing, protocol.PacketNumber(3))
}

func TestDetectMissingPacketsEmptyWhenNothingReceived(t *testing.T) {
	m := New(qlog.Nop)
	require.Empty(t, m.DetectMissingPackets())
}

func TestCleanupOldRecordsStrictlyLessThanCutoff(t *testing.T) {
	m := New(qlog.Nop)
	require.NoError(t, m.OnPacketReceived(1, 1000, false))
	require.NoError(t, m.OnPacketReceived(2, 2000, false))

	m.CleanupOldRecords(2000)

	require.False(t, m.IsPotentiallyDuplicate(1))
	require.True(t, m.IsPotentiallyDuplicate(2)) // == cutoff survives
}
