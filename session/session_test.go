package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axmq/mqttv5/packet"

	merrors "github.com/axmq/mqttv5/errors"
)

func TestAllocatePacketIDSequence(t *testing.T) {
	s := New(Config{})

	assert.Equal(t, uint16(1), s.AllocatePacketID())
	assert.Equal(t, uint16(2), s.AllocatePacketID())
	assert.Equal(t, uint16(3), s.AllocatePacketID())
}

func TestAllocatePacketIDSkipsZeroOnWrap(t *testing.T) {
	s := New(Config{})
	s.nextPacketID = 65535

	assert.Equal(t, uint16(65535), s.AllocatePacketID())
	assert.Equal(t, uint16(1), s.AllocatePacketID())
}

func TestAllocatePacketIDSkipsInUse(t *testing.T) {
	s := New(Config{})

	require.NoError(t, s.TrackClientPublish(1, AwaitingPuback, packet.QoS1))
	require.NoError(t, s.TrackSubscribe(2))
	require.NoError(t, s.TrackUnsubscribe(3))
	require.NoError(t, s.TrackServerPublish(4))

	assert.Equal(t, uint16(5), s.AllocatePacketID())
}

func TestPacketIDUniqueAcrossAllTables(t *testing.T) {
	s := New(Config{})

	tables := []func(uint16) error{
		func(id uint16) error { return s.TrackClientPublish(id, AwaitingPubrec, packet.QoS2) },
		s.TrackServerPublish,
		s.TrackSubscribe,
		s.TrackUnsubscribe,
	}
	for i, track := range tables {
		id := s.AllocatePacketID()
		require.NoError(t, track(id), "table %d", i)
		assert.True(t, s.inUse(id))
	}
	assert.Equal(t, 1, s.InFlightClientPublishes())
	assert.Equal(t, 1, s.InFlightServerPublishes())
	assert.Equal(t, 1, s.PendingSubscribes())
	assert.Equal(t, 1, s.PendingUnsubscribes())
}

func TestClientPublishTableCapacity(t *testing.T) {
	s := New(Config{SendMaximum: 2})

	require.NoError(t, s.TrackClientPublish(1, AwaitingPuback, packet.QoS1))
	require.NoError(t, s.TrackClientPublish(2, AwaitingPuback, packet.QoS1))

	err := s.TrackClientPublish(3, AwaitingPuback, packet.QoS1)
	assert.ErrorIs(t, err, merrors.ErrSessionBuffer)

	_, ok := s.RemoveClientPublish(1)
	require.True(t, ok)
	assert.NoError(t, s.TrackClientPublish(3, AwaitingPuback, packet.QoS1))
}

func TestServerPublishTableCapacity(t *testing.T) {
	s := New(Config{ReceiveMaximum: 1})

	require.NoError(t, s.TrackServerPublish(10))
	assert.ErrorIs(t, s.TrackServerPublish(11), merrors.ErrSessionBuffer)

	assert.True(t, s.RemoveServerPublish(10))
	assert.NoError(t, s.TrackServerPublish(11))
}

func TestPendingListCapacity(t *testing.T) {
	s := New(Config{MaxPendingSubscribes: 1, MaxPendingUnsubscribes: 1})

	require.NoError(t, s.TrackSubscribe(1))
	assert.ErrorIs(t, s.TrackSubscribe(2), merrors.ErrSessionBuffer)

	require.NoError(t, s.TrackUnsubscribe(3))
	assert.ErrorIs(t, s.TrackUnsubscribe(4), merrors.ErrSessionBuffer)

	assert.True(t, s.AckSubscribe(1))
	assert.False(t, s.AckSubscribe(1))
	assert.True(t, s.AckUnsubscribe(3))
	assert.False(t, s.AckUnsubscribe(99))
}

func TestTransitionClientPublish(t *testing.T) {
	s := New(Config{})

	require.NoError(t, s.TrackClientPublish(7, AwaitingPubrec, packet.QoS2))
	assert.True(t, s.TransitionClientPublish(7, AwaitingPubcomp))

	e, ok := s.ClientPublish(7)
	require.True(t, ok)
	assert.Equal(t, AwaitingPubcomp, e.State)
	assert.Equal(t, packet.QoS2, e.QoS)

	assert.False(t, s.TransitionClientPublish(8, AwaitingPubcomp))
}

func TestRestoreClientPublish(t *testing.T) {
	s := New(Config{})

	require.NoError(t, s.TrackClientPublish(5, AwaitingPubcomp, packet.QoS2))
	e, ok := s.RemoveClientPublish(5)
	require.True(t, ok)
	require.NoError(t, s.RestoreClientPublish(e))

	got, ok := s.ClientPublish(5)
	require.True(t, ok)
	assert.Equal(t, e, got)
}

func TestClear(t *testing.T) {
	s := New(Config{})

	require.NoError(t, s.TrackClientPublish(1, AwaitingPuback, packet.QoS1))
	require.NoError(t, s.TrackServerPublish(2))
	require.NoError(t, s.TrackSubscribe(3))
	require.NoError(t, s.TrackUnsubscribe(4))
	s.AllocatePacketID()

	s.Clear()

	assert.Equal(t, 0, s.InFlightClientPublishes())
	assert.Equal(t, 0, s.InFlightServerPublishes())
	assert.Equal(t, 0, s.PendingSubscribes())
	assert.Equal(t, 0, s.PendingUnsubscribes())
	assert.Equal(t, uint16(1), s.AllocatePacketID())
}

func TestCloneIsIndependent(t *testing.T) {
	s := New(Config{})
	require.NoError(t, s.TrackClientPublish(1, AwaitingPuback, packet.QoS1))

	c := s.Clone()
	_, ok := c.ClientPublish(1)
	require.True(t, ok)

	_, removed := s.RemoveClientPublish(1)
	require.True(t, removed)

	_, ok = c.ClientPublish(1)
	assert.True(t, ok, "clone must not share table storage with the original")
}

func TestClientPublishesSnapshot(t *testing.T) {
	s := New(Config{})
	require.NoError(t, s.TrackClientPublish(1, AwaitingPubcomp, packet.QoS2))
	require.NoError(t, s.TrackClientPublish(2, AwaitingPuback, packet.QoS1))

	snap := s.ClientPublishes()
	require.Len(t, snap, 2)

	_, removed := s.RemoveClientPublish(1)
	require.True(t, removed)
	assert.Len(t, snap, 2, "snapshot must not observe later mutation")
}

func TestInflightTableRemoveKeepsOthers(t *testing.T) {
	tbl := newInflightTable(4)
	for id := uint16(1); id <= 4; id++ {
		require.NoError(t, tbl.add(InFlight{PacketID: id, State: AwaitingPuback, QoS: packet.QoS1}))
	}

	_, ok := tbl.remove(2)
	require.True(t, ok)
	assert.Equal(t, 3, tbl.len())
	for _, id := range []uint16{1, 3, 4} {
		_, found := tbl.get(id)
		assert.True(t, found, "entry %d", id)
	}
	_, found := tbl.get(2)
	assert.False(t, found)
}
