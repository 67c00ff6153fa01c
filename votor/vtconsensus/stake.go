package vtconsensus

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// StakeLedger maps the validator set to stake amounts and answers
// the three quorum questions of the protocol:
// fast finalization at 4/5 of total stake,
// slow finalization at 3/5,
// and view-skip agreement at 2/3.
//
// The skip threshold is deliberately the stricter 2/3 reading;
// the alternative 3/5 reading would only weaken the bound.
type StakeLedger struct {
	set   ValidatorSet
	total uint64
}

func NewStakeLedger(set ValidatorSet) StakeLedger {
	var total uint64
	for _, v := range set.Validators {
		total += v.Stake
	}
	return StakeLedger{set: set, total: total}
}

func (l StakeLedger) Set() ValidatorSet {
	return l.set
}

func (l StakeLedger) TotalStake() uint64 {
	return l.total
}

// StakeOf returns the stake of a single validator,
// or zero for an out-of-range ID.
func (l StakeLedger) StakeOf(id ValidatorID) uint64 {
	if !l.set.InRange(id) {
		return 0
	}
	return l.set.Validators[id].Stake
}

// StakeOfBits sums the stake of the validators whose bits are set.
// Each validator contributes at most once regardless of how the
// bit set was assembled, which is what keeps equivocating voters
// from being double-counted inside one certificate.
func (l StakeLedger) StakeOfBits(bits *bitset.BitSet) uint64 {
	var sum uint64
	for i, ok := bits.NextSet(0); ok; i, ok = bits.NextSet(i + 1) {
		sum += l.StakeOf(ValidatorID(i))
	}
	return sum
}

// MeetsFastQuorum reports whether stake covers 4/5 of the total.
func (l StakeLedger) MeetsFastQuorum(stake uint64) bool {
	return 5*stake >= 4*l.total && l.total > 0
}

// MeetsSlowQuorum reports whether stake covers 3/5 of the total.
func (l StakeLedger) MeetsSlowQuorum(stake uint64) bool {
	return 5*stake >= 3*l.total && l.total > 0
}

// MeetsSkipQuorum reports whether stake covers 2/3 of the total.
func (l StakeLedger) MeetsSkipQuorum(stake uint64) bool {
	return 3*stake >= 2*l.total && l.total > 0
}

// MeetsQuorum dispatches to the threshold matching the certificate type.
func (l StakeLedger) MeetsQuorum(ct CertType, stake uint64) bool {
	switch ct {
	case CertFast:
		return l.MeetsFastQuorum(stake)
	case CertSlow:
		return l.MeetsSlowQuorum(stake)
	case CertSkip:
		return l.MeetsSkipQuorum(stake)
	default:
		return false
	}
}

// CheckResilience verifies the declared fault statuses stay within
// the protocol's "20+20" bound: Byzantine stake strictly below 1/5,
// offline stake at most 1/5, and their combination at most 2/5.
// This is a startup check, not a runtime guard.
func (l StakeLedger) CheckResilience() error {
	var byz, offline uint64
	for _, v := range l.set.Validators {
		switch v.Status {
		case StatusByzantine:
			byz += v.Stake
		case StatusOffline:
			offline += v.Stake
		}
	}

	if 5*byz >= l.total {
		return fmt.Errorf(
			"%w: byzantine stake %d is not below 1/5 of total %d",
			ErrUnsafeConfiguration, byz, l.total,
		)
	}
	if 5*offline > l.total {
		return fmt.Errorf(
			"%w: offline stake %d exceeds 1/5 of total %d",
			ErrUnsafeConfiguration, offline, l.total,
		)
	}
	if 5*(byz+offline) > 2*l.total {
		return fmt.Errorf(
			"%w: byzantine+offline stake %d exceeds 2/5 of total %d",
			ErrUnsafeConfiguration, byz+offline, l.total,
		)
	}

	return nil
}
