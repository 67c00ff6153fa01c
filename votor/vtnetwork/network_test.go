package vtnetwork_test

import (
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus"
	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus/vtconsensustest"
	"github.com/alpenglow-engine/alpenglow/votor/vtnetwork"
)

// newSubstrate builds a five-validator substrate with validator 4
// marked Byzantine, for tests exercising adversary attribution.
func newSubstrate(t *testing.T, cfg vtnetwork.Config) *vtnetwork.Substrate {
	t.Helper()

	privVals := vtconsensustest.DeterministicValidators([]uint64{30, 25, 20, 15, 10})
	privVals[4].Val.Status = vtconsensus.StatusByzantine
	set := vtconsensus.NewValidatorSet(privVals.Vals())

	s, err := vtnetwork.NewSubstrate(slogt.New(t), cfg, set)
	require.NoError(t, err)
	return s
}

// fixedDelay pins every pre-GST delay for reproducible schedules.
func fixedDelay(d vtnetwork.Tick) func(_, _ vtconsensus.ValidatorID, _ vtnetwork.Tick) vtnetwork.Tick {
	return func(_, _ vtconsensus.ValidatorID, _ vtnetwork.Tick) vtnetwork.Tick {
		return d
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	base := vtnetwork.Config{Delta: 3, PartitionTimeout: 10}
	require.NoError(t, base.Validate())

	for name, cfg := range map[string]vtnetwork.Config{
		"zero delta":             {PartitionTimeout: 10},
		"zero partition timeout": {Delta: 3},
		"inverted delay bounds": {
			Delta: 3, PartitionTimeout: 10,
			MinAdversarialDelay: 50, MaxAdversarialDelay: 10,
		},
	} {
		cfg := cfg
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			require.ErrorIs(t, cfg.Validate(), vtconsensus.ErrUnsafeConfiguration)
		})
	}
}

func TestSubstrate_SendValidation(t *testing.T) {
	t.Parallel()

	s := newSubstrate(t, vtnetwork.Config{Delta: 3, GST: 0, PartitionTimeout: 10})

	_, err := s.Send(0, 0, []byte("x"), 1)
	require.Error(t, err, "self-send must be rejected")

	_, err = s.Send(0, 99, []byte("x"), 1)
	require.Error(t, err)

	_, err = s.Send(99, 0, []byte("x"), 1)
	require.Error(t, err)
}

func TestSubstrate_PostGSTDeliveryWithinDelta(t *testing.T) {
	t.Parallel()

	// GST zero: synchronous from the first tick. A tiny congestion
	// factor forces the congestion term above Delta, which must
	// still cap the delay.
	s := newSubstrate(t, vtnetwork.Config{
		Delta: 3, GST: 0, PartitionTimeout: 10,
		CongestionFactor: 1,
	})

	for i := 0; i < 10; i++ {
		_, err := s.Send(0, 1, []byte("fill"), 1)
		require.NoError(t, err)
	}

	s.Advance(1 + 3)
	require.Len(t, s.Collect(1), 10, "messages exceeded the Delta bound")
	require.Zero(t, s.QueueLen())
}

func TestSubstrate_PreGSTDelaysAreBoundedAdversarial(t *testing.T) {
	t.Parallel()

	t.Run("chooser picks the schedule", func(t *testing.T) {
		t.Parallel()

		s := newSubstrate(t, vtnetwork.Config{
			Delta: 2, GST: 1000, PartitionTimeout: 10,
			DelayChooser: fixedDelay(5),
		})

		_, err := s.Send(0, 1, []byte("x"), 1)
		require.NoError(t, err)

		s.Advance(5)
		require.Empty(t, s.Collect(1))

		s.Advance(6)
		require.Len(t, s.Collect(1), 1)
	})

	t.Run("chooser is clamped into the bounds", func(t *testing.T) {
		t.Parallel()

		s := newSubstrate(t, vtnetwork.Config{
			Delta: 2, GST: 1000, PartitionTimeout: 10,
			MinAdversarialDelay: 2, MaxAdversarialDelay: 10,
			DelayChooser: fixedDelay(10_000),
		})

		_, err := s.Send(0, 1, []byte("x"), 1)
		require.NoError(t, err)

		// Clamped to the max bound of 10.
		s.Advance(10)
		require.Empty(t, s.Collect(1))
		s.Advance(11)
		require.Len(t, s.Collect(1), 1)
	})

	t.Run("default source stays within bounds", func(t *testing.T) {
		t.Parallel()

		s := newSubstrate(t, vtnetwork.Config{
			Delta: 2, GST: 1000, PartitionTimeout: 10,
			DelaySeed: 7,
		})

		for i := 0; i < 50; i++ {
			_, err := s.Send(0, 1, []byte("x"), 1)
			require.NoError(t, err)
		}

		// Nothing arrives at the send tick; everything by the max bound.
		s.Advance(1)
		require.Empty(t, s.Collect(1))
		s.Advance(101)
		require.Len(t, s.Collect(1), 50)
	})
}

func TestSubstrate_Broadcast(t *testing.T) {
	t.Parallel()

	s := newSubstrate(t, vtnetwork.Config{Delta: 3, GST: 0, PartitionTimeout: 10})

	ids, err := s.Broadcast(2, []byte("hello"), 1)
	require.NoError(t, err)
	require.Len(t, ids, 4)

	seen := make(map[vtnetwork.MessageID]bool)
	for _, id := range ids {
		require.Equal(t, vtconsensus.ValidatorID(2), id.Sender)
		require.False(t, seen[id], "broadcast produced duplicate IDs")
		seen[id] = true
	}

	s.Advance(10)
	require.Empty(t, s.Collect(2), "broadcast must not loop back to the sender")
	for _, r := range []vtconsensus.ValidatorID{0, 1, 3, 4} {
		msgs := s.Collect(r)
		require.Len(t, msgs, 1)
		require.Equal(t, []byte("hello"), msgs[0].Payload)
		require.Equal(t, vtconsensus.ValidatorID(2), msgs[0].Sender)
	}
}

func TestSubstrate_DeterministicDeliveryOrder(t *testing.T) {
	t.Parallel()

	s := newSubstrate(t, vtnetwork.Config{
		Delta: 5, GST: 1000, PartitionTimeout: 10,
		DelayChooser: fixedDelay(1),
	})

	// Sent in descending sender order; delivery sorts ascending.
	for _, sender := range []vtconsensus.ValidatorID{3, 2, 0} {
		_, err := s.Send(sender, 1, []byte{byte(sender)}, 1)
		require.NoError(t, err)
	}
	// A second message from 0 follows its first by sequence.
	_, err := s.Send(0, 1, []byte{0xff}, 1)
	require.NoError(t, err)

	s.Advance(2)
	msgs := s.Collect(1)
	require.Len(t, msgs, 4)
	require.Equal(t, []byte{0}, msgs[0].Payload)
	require.Equal(t, []byte{0xff}, msgs[1].Payload)
	require.Equal(t, []byte{2}, msgs[2].Payload)
	require.Equal(t, []byte{3}, msgs[3].Payload)
}
