package vtconsensus

import (
	"encoding/binary"

	"lukechampine.com/blake3"
)

// LeaderSchedule selects the proposer for a (slot, view) pair.
//
// Views are grouped into fixed-size windows so that consecutive views
// inside one window share a leader, batching timeout backoff.
// The target derivation abstracts a VRF: it is deterministic and
// reproducible, but unpredictable without the seed.
type LeaderSchedule struct {
	// Seed for the selection hash, shared by all validators.
	Seed [32]byte

	// Number of consecutive views assigned to one leader.
	// Zero is treated as one.
	WindowSize uint64
}

// WindowIndex returns which leader window the view belongs to.
func (s LeaderSchedule) WindowIndex(view uint64) uint64 {
	w := s.WindowSize
	if w == 0 {
		w = 1
	}
	return view / w
}

// ComputeLeader is a pure function of (slot, window index, ledger):
// repeated calls with identical inputs return the same validator.
// It returns [NoValidator] for an empty or zero-stake set.
//
// Selection walks the cumulative stake distribution in validator order,
// so a validator's chance of leading is proportional to its stake.
func (s LeaderSchedule) ComputeLeader(slot, view uint64, ledger StakeLedger) ValidatorID {
	total := ledger.TotalStake()
	if total == 0 {
		return NoValidator
	}

	input := make([]byte, 0, len(s.Seed)+len("alpenglow/leader|")+16)
	input = append(input, s.Seed[:]...)
	input = append(input, "alpenglow/leader|"...)
	input = binary.BigEndian.AppendUint64(input, slot)
	input = binary.BigEndian.AppendUint64(input, s.WindowIndex(view))

	sum := blake3.Sum256(input)
	target := binary.BigEndian.Uint64(sum[:8]) % total

	var cum uint64
	for i, v := range ledger.Set().Validators {
		cum += v.Stake
		if target < cum {
			return ValidatorID(i)
		}
	}

	// Unreachable while total stake is consistent with the set.
	return NoValidator
}
