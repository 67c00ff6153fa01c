package vtintegration_test

import (
	"context"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/alpenglow-engine/alpenglow/votor/vtcodec"
	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus"
	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus/vtconsensustest"
	"github.com/alpenglow-engine/alpenglow/votor/vtengine"
	"github.com/alpenglow-engine/alpenglow/votor/vtintegration"
	"github.com/alpenglow-engine/alpenglow/votor/vtnetwork"
)

// allAtSlot reports whether every honest validator has finalized
// all slots below the given one.
func allAtSlot(slot uint64) func(*vtintegration.Driver) bool {
	return func(d *vtintegration.Driver) bool {
		for _, v := range d.HonestVotors() {
			if v.Slot() < slot {
				return false
			}
		}
		return true
	}
}

func allPastView(view uint64) func(*vtintegration.Driver) bool {
	return func(d *vtintegration.Driver) bool {
		for _, v := range d.HonestVotors() {
			if v.View() <= view {
				return false
			}
		}
		return true
	}
}

func TestDriver_RejectsBadNetworkConfig(t *testing.T) {
	t.Parallel()

	_, err := vtintegration.NewDriver(slogt.New(t), vtintegration.DriverConfig{
		Fixture: vtconsensustest.NewFixture([]uint64{1, 1, 1}),
		Network: vtnetwork.Config{
			// Delta zero voids the post-GST delivery bound.
			PartitionTimeout: 10,
		},
		Timeouts: vtengine.ExponentialTimeoutStrategy{Base: 10, Min: 10, Max: 100, WindowSize: 4},
	})
	require.ErrorIs(t, err, vtconsensus.ErrUnsafeConfiguration)
}

// A synchronous network with every validator responsive finalizes
// slot 1 in view 1 through the fast path: all five commit votes land
// in the same delivery round, so stake is judged at 100% and the
// certificate forms at the 80% threshold, never the 60% one.
func TestDriver_FastPathFinalization(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := vtconsensustest.NewFixture([]uint64{30, 25, 20, 15, 10})

	d, err := vtintegration.NewDriver(slogt.New(t), vtintegration.DriverConfig{
		Fixture: fx,
		Network: vtnetwork.Config{
			Delta:            2,
			GST:              0,
			PartitionTimeout: 100,
			CongestionFactor: 1 << 20,
		},
		Timeouts: vtengine.ExponentialTimeoutStrategy{Base: 100, Min: 100, Max: 1000, WindowSize: 4},
	})
	require.NoError(t, err)

	done, err := d.RunUntil(ctx, 50, allAtSlot(2))
	require.NoError(t, err)
	require.True(t, done, "slot 1 not finalized everywhere within 50 ticks")

	leader := fx.Schedule.ComputeLeader(1, 1, fx.Ledger)

	var hash string
	for i, v := range d.Votors {
		chain := v.FinalizedChain()
		require.Len(t, chain, 1, "validator %d", i)
		require.Equal(t, uint64(1), chain[0].Slot, "validator %d", i)
		require.Equal(t, uint64(1), chain[0].View,
			"validator %d finalized outside the first view", i)
		require.Equal(t, leader, chain[0].Proposer, "validator %d", i)

		if hash == "" {
			hash = chain[0].Hash
		}
		require.Equal(t, hash, chain[0].Hash,
			"validator %d finalized a conflicting block", i)

		fin, err := d.Stores[i].LoadFinalizationBySlot(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, vtconsensus.CertFast, fin.CertType, "validator %d", i)

		for _, c := range v.Certificates() {
			require.Equal(t, vtconsensus.CertFast, c.Type,
				"validator %d holds a non-fast certificate", i)
		}

		require.Empty(t, v.Evidence(), "validator %d", i)
	}
}

// Validators 0 and 1 control 55% of stake, and everything they send
// is held at the full adversarial delay bound until GST. The remaining
// 45% cannot reach any quorum, so view 1 times out everywhere, and
// slot 1 only finalizes in a later view once the network stabilizes.
func TestDriver_DelayedMajoritySkipsView(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := vtconsensustest.NewFixture([]uint64{30, 25, 20, 15, 10})

	slowed := map[vtconsensus.ValidatorID]bool{0: true, 1: true}

	d, err := vtintegration.NewDriver(slogt.New(t), vtintegration.DriverConfig{
		Fixture: fx,
		Network: vtnetwork.Config{
			Delta:            2,
			GST:              400,
			PartitionTimeout: 100,
			CongestionFactor: 1 << 20,
			DelayChooser: func(sender, _ vtconsensus.ValidatorID, _ vtnetwork.Tick) vtnetwork.Tick {
				if slowed[sender] {
					return 100
				}
				return 1
			},
		},
		Timeouts: vtengine.ExponentialTimeoutStrategy{Base: 25, Min: 25, Max: 400, WindowSize: 4},
	})
	require.NoError(t, err)

	// Stage 1: every validator abandons view 1 with nothing finalized.
	done, err := d.RunUntil(ctx, 100, allPastView(1))
	require.NoError(t, err)
	require.True(t, done, "validators never left view 1")

	for i, v := range d.Votors {
		require.Equal(t, uint64(1), v.Slot(),
			"validator %d finalized without a responsive quorum", i)
		require.Empty(t, v.FinalizedChain(), "validator %d", i)
	}

	// Stage 2: once delays collapse at GST, a later view completes.
	done, err = d.RunUntil(ctx, 800, allAtSlot(2))
	require.NoError(t, err)
	require.True(t, done, "slot 1 not finalized after GST")

	var hash string
	for i, v := range d.Votors {
		chain := v.FinalizedChain()
		require.NotEmpty(t, chain, "validator %d", i)
		require.Equal(t, uint64(1), chain[0].Slot, "validator %d", i)
		require.GreaterOrEqual(t, chain[0].View, uint64(2),
			"validator %d finalized slot 1 in the timed-out view", i)

		if hash == "" {
			hash = chain[0].Hash
		}
		require.Equal(t, hash, chain[0].Hash,
			"validator %d finalized a conflicting block", i)

		fin, err := d.Stores[i].LoadFinalizationBySlot(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, vtconsensus.CertFast, fin.CertType, "validator %d", i)
		require.GreaterOrEqual(t, fin.View, uint64(2), "validator %d", i)

		require.Empty(t, v.Evidence(), "validator %d", i)
	}
}

// doubleVoter broadcasts two conflicting commit votes from a
// Byzantine validator for the same view: one for the leader's real
// block and one for a fabricated alternative.
type doubleVoter struct {
	fx     *vtconsensustest.Fixture
	byz    vtconsensus.ValidatorID
	leader vtconsensus.ValidatorID

	realHash string
	fakeHash string

	fired bool
}

func (a *doubleVoter) Step(_ context.Context, d *vtintegration.Driver, now vtnetwork.Tick) error {
	if a.fired || now < 2 {
		return nil
	}
	a.fired = true

	// The leader's tick-1 proposal is reconstructible from public
	// inputs, so the adversary can vote for it before relaying it.
	real := a.fx.SignedProposal(a.leader, 1, 1, vtconsensus.ZeroHash, 1)
	fake := a.fx.SignedProposal(a.byz, 1, 1, vtconsensus.ZeroHash, 1)
	a.realHash = real.Hash
	a.fakeHash = fake.Hash

	for _, blockHash := range []string{real.Hash, fake.Hash} {
		vote := a.fx.SignedCommitVote(a.byz, vtconsensus.VoteTarget{
			Slot: 1, View: 1, BlockHash: blockHash,
		}, now)

		payload, err := vtcodec.Marshal(vtcodec.ConsensusMessage{Vote: &vote})
		if err != nil {
			return err
		}
		if _, err := d.Substrate.InjectBroadcast(a.byz, payload, now); err != nil {
			return err
		}
	}

	return nil
}

// A Byzantine validator holding 19% of stake votes for two different
// blocks in the same view. The 81% honest supermajority still
// finalizes the real block through the fast path, and every honest
// validator records double-vote evidence against the equivocator.
func TestDriver_ByzantineDoubleVoteSafety(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	stakes := []uint64{19, 19, 19, 24, 19}

	privVals := vtconsensustest.DeterministicValidators(stakes)
	probe := vtconsensustest.NewFixtureFromPrivVals(privVals)
	leader := probe.Schedule.ComputeLeader(1, 1, probe.Ledger)
	require.NotEqual(t, vtconsensus.NoValidator, leader)

	// Accuse any non-leader with under a fifth of total stake.
	byz := vtconsensus.NoValidator
	for i := range privVals {
		if vtconsensus.ValidatorID(i) != leader && stakes[i]*5 < 100 {
			byz = vtconsensus.ValidatorID(i)
			break
		}
	}
	require.NotEqual(t, vtconsensus.NoValidator, byz)

	privVals[byz].Val.Status = vtconsensus.StatusByzantine
	fx := vtconsensustest.NewFixtureFromPrivVals(privVals)

	adv := &doubleVoter{fx: fx, byz: byz, leader: leader}

	d, err := vtintegration.NewDriver(slogt.New(t), vtintegration.DriverConfig{
		Fixture: fx,
		Network: vtnetwork.Config{
			Delta:            2,
			GST:              0,
			PartitionTimeout: 100,
			CongestionFactor: 1 << 20,
		},
		Timeouts:  vtengine.ExponentialTimeoutStrategy{Base: 100, Min: 100, Max: 1000, WindowSize: 4},
		Adversary: adv,
	})
	require.NoError(t, err)

	done, err := d.RunUntil(ctx, 50, allAtSlot(2))
	require.NoError(t, err)
	require.True(t, done, "honest validators failed to finalize past the equivocator")
	require.True(t, adv.fired)

	for i, v := range d.Votors {
		if v == nil {
			continue
		}

		chain := v.FinalizedChain()
		require.NotEmpty(t, chain, "validator %d", i)
		require.Equal(t, adv.realHash, chain[0].Hash,
			"validator %d finalized something other than the leader's block", i)
		require.Equal(t, uint64(1), chain[0].View, "validator %d", i)

		// The fabricated block tops out at the equivocator's own
		// stake and never reaches any certificate threshold.
		for _, c := range v.Certificates() {
			require.NotEqual(t, adv.fakeHash, c.BlockHash,
				"validator %d aggregated a certificate for the fabricated block", i)
		}

		var doubleVotes []vtconsensus.Evidence
		for _, ev := range v.Evidence() {
			if ev.Type == vtconsensus.EvidenceDoubleVote {
				doubleVotes = append(doubleVotes, ev)
			}
		}
		require.Len(t, doubleVotes, 1, "validator %d", i)

		ev := doubleVotes[0]
		require.Equal(t, byz, ev.Accused, "validator %d", i)
		require.Equal(t, uint64(1), ev.View, "validator %d", i)
		require.Len(t, ev.Votes, 2, "validator %d", i)
		require.NotEqual(t,
			ev.Votes[0].Target.BlockHash, ev.Votes[1].Target.BlockHash,
			"validator %d recorded evidence without conflicting targets", i,
		)
	}
}

// partitioner splits the network into two sides at a fixed tick.
type partitioner struct {
	sideA []vtconsensus.ValidatorID
	at    vtnetwork.Tick

	fired bool
}

func (a *partitioner) Step(_ context.Context, d *vtintegration.Driver, now vtnetwork.Tick) error {
	if a.fired || now < a.at {
		return nil
	}
	a.fired = true
	return d.Substrate.Partition(a.sideA, now)
}

// A pre-GST partition separates 55% of stake from 45%. Neither side
// can finalize or skip alone, so views advance only by timeout until
// the partition heals at GST, after which the next complete view
// finalizes slot 1 everywhere.
func TestDriver_PartitionHealRecovery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := vtconsensustest.NewFixture([]uint64{30, 25, 20, 15, 10})

	adv := &partitioner{sideA: []vtconsensus.ValidatorID{0, 1}, at: 5}

	d, err := vtintegration.NewDriver(slogt.New(t), vtintegration.DriverConfig{
		Fixture: fx,
		Network: vtnetwork.Config{
			Delta:            2,
			GST:              200,
			PartitionTimeout: 100,
			CongestionFactor: 1 << 20,
			// A fixed pre-GST delay keeps the run reproducible.
			DelayChooser: func(_, _ vtconsensus.ValidatorID, _ vtnetwork.Tick) vtnetwork.Tick {
				return 80
			},
		},
		Timeouts:  vtengine.ExponentialTimeoutStrategy{Base: 150, Min: 150, Max: 1200, WindowSize: 4},
		Adversary: adv,
	})
	require.NoError(t, err)

	// While partitioned, views time out but nothing finalizes.
	_, err = d.RunUntil(ctx, 180, nil)
	require.NoError(t, err)
	require.True(t, adv.fired)
	require.True(t, d.Substrate.Partitioned())

	for i, v := range d.Votors {
		require.Equal(t, uint64(1), v.Slot(),
			"validator %d finalized across the partition", i)
		require.GreaterOrEqual(t, v.View(), uint64(2),
			"validator %d never timed out of view 1", i)
	}

	// The partition heals at GST and the next full view completes.
	done, err := d.RunUntil(ctx, 600, allAtSlot(2))
	require.NoError(t, err)
	require.True(t, done, "slot 1 not finalized after the heal")
	require.False(t, d.Substrate.Partitioned())

	var hash string
	for i, v := range d.Votors {
		chain := v.FinalizedChain()
		require.NotEmpty(t, chain, "validator %d", i)
		require.Equal(t, uint64(1), chain[0].Slot, "validator %d", i)
		require.GreaterOrEqual(t, chain[0].View, uint64(2),
			"validator %d finalized in the partitioned view", i)

		if hash == "" {
			hash = chain[0].Hash
		}
		require.Equal(t, hash, chain[0].Hash,
			"validator %d finalized a conflicting block", i)

		require.Empty(t, v.Evidence(), "validator %d", i)
	}
}
