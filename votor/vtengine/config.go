package vtengine

import (
	"errors"
	"fmt"

	"github.com/alpenglow-engine/alpenglow/agcrypto"
	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus"
	"github.com/alpenglow-engine/alpenglow/votor/vtnetwork"
	"github.com/alpenglow-engine/alpenglow/votor/vtstore"
)

// Broadcaster delivers outbound consensus payloads to every other
// validator. [*vtnetwork.Substrate] satisfies this directly.
type Broadcaster interface {
	Broadcast(
		sender vtconsensus.ValidatorID,
		payload []byte,
		now vtconsensus.Tick,
	) ([]vtnetwork.MessageID, error)
}

// Config holds everything a [Votor] needs at construction.
type Config struct {
	// The local validator's position in the set.
	Self vtconsensus.ValidatorID

	Signer agcrypto.Signer

	ValSet vtconsensus.ValidatorSet
	Ledger vtconsensus.StakeLedger

	Schedule vtconsensus.LeaderSchedule

	HashScheme  vtconsensus.HashScheme
	SigScheme   vtconsensus.SignatureScheme
	ProofScheme agcrypto.AggregateProofScheme

	Store vtstore.FinalizationStore

	Timeouts TimeoutStrategy
}

// Validate flags configuration problems at startup
// rather than letting them surface mid-run.
func (c Config) Validate() error {
	if !c.ValSet.InRange(c.Self) {
		return fmt.Errorf(
			"%w: validator %d outside set of %d",
			vtconsensus.ErrUnsafeConfiguration, c.Self, len(c.ValSet.Validators),
		)
	}
	if c.Signer == nil {
		return errors.New("config: Signer required")
	}
	if !c.Signer.PubKey().Equal(c.ValSet.Validators[c.Self].PubKey) {
		return fmt.Errorf(
			"%w: signer key does not match validator %d",
			vtconsensus.ErrUnsafeConfiguration, c.Self,
		)
	}
	if c.HashScheme == nil {
		return errors.New("config: HashScheme required")
	}
	if c.SigScheme == nil {
		return errors.New("config: SigScheme required")
	}
	if c.ProofScheme == nil {
		return errors.New("config: ProofScheme required")
	}
	if c.Store == nil {
		return errors.New("config: Store required")
	}
	if c.Timeouts == nil {
		return errors.New("config: Timeouts required")
	}

	// The declared fault model must stay inside the 20+20 bound.
	if err := c.Ledger.CheckResilience(); err != nil {
		return err
	}

	return nil
}
