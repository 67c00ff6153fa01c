package vtnetwork

import (
	"fmt"

	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus"
)

type partitionState struct {
	// sideA[id] reports which side a validator is on.
	sideA []bool

	start  Tick
	healed bool
}

// Partition splits the validator set into sideA and its complement.
// Partitions may only be created before GST,
// and at most one partition is active at a time.
//
// The partition heals automatically at max(GST, start+PartitionTimeout);
// until then, liveness is void if neither side holds slow-quorum stake.
func (s *Substrate) Partition(sideA []vtconsensus.ValidatorID, now Tick) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now >= s.cfg.GST {
		return fmt.Errorf("cannot create partition at tick %d, at or after GST %d", now, s.cfg.GST)
	}
	if s.part != nil && !s.part.healed {
		return fmt.Errorf("partition already active since tick %d", s.part.start)
	}
	if len(sideA) == 0 || len(sideA) >= s.n {
		return fmt.Errorf("partition side must be a non-empty proper subset, got %d of %d", len(sideA), s.n)
	}

	membership := make([]bool, s.n)
	for _, id := range sideA {
		if int(id) >= s.n {
			return fmt.Errorf("unknown validator %d in partition", id)
		}
		membership[id] = true
	}

	s.part = &partitionState{
		sideA: membership,
		start: now,
	}

	s.log.Info(
		"Network partitioned",
		"side_a_size", len(sideA),
		"side_b_size", s.n-len(sideA),
		"start", now,
		"heal_by", s.healTickLocked(),
	)

	return nil
}

// Heal ends the active partition immediately.
// Advance also heals automatically once the heal tick is reached.
func (s *Substrate) Heal(now Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.part == nil || s.part.healed {
		return
	}

	s.part.healed = true
	s.log.Info("Network partition healed", "start", s.part.start, "healed_at", now)
}

// Partitioned reports whether a partition is currently separating traffic.
func (s *Substrate) Partitioned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.part != nil && !s.part.healed
}

func (s *Substrate) healTickLocked() Tick {
	return max(s.cfg.GST, s.part.start+s.cfg.PartitionTimeout)
}

func (s *Substrate) maybeHealLocked(now Tick) {
	if s.part == nil || s.part.healed {
		return
	}
	if now < s.healTickLocked() {
		return
	}

	s.part.healed = true
	s.log.Info("Network partition healed", "start", s.part.start, "healed_at", now)
}

func (s *Substrate) separatedLocked(a, b vtconsensus.ValidatorID) bool {
	if s.part == nil || s.part.healed {
		return false
	}
	return s.part.sideA[a] != s.part.sideA[b]
}
