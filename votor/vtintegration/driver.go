// Package vtintegration wires validators, the network substrate,
// and pluggable adversaries into a deterministic discrete-event
// simulation for end-to-end protocol tests.
package vtintegration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus"
	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus/vtconsensustest"
	"github.com/alpenglow-engine/alpenglow/votor/vtengine"
	"github.com/alpenglow-engine/alpenglow/votor/vtnetwork"
	"github.com/alpenglow-engine/alpenglow/votor/vtstore"
)

// AdversaryStrategy injects Byzantine behavior into a run.
// Each test supplies the specific misbehavior it wants to observe
// instead of enumerating every possible attack.
type AdversaryStrategy interface {
	// Step runs at the start of every tick,
	// before messages are delivered and validators act.
	Step(ctx context.Context, d *Driver, now vtnetwork.Tick) error
}

// DriverConfig assembles one simulated network.
type DriverConfig struct {
	Fixture *vtconsensustest.Fixture

	Network vtnetwork.Config

	Timeouts vtengine.TimeoutStrategy

	// Optional; nil means a fault-free run
	// (aside from whatever the network config does).
	Adversary AdversaryStrategy
}

// Driver steps the whole system one tick at a time
// with deterministic ordering:
// adversary, then network delivery, then validators in ID order.
// The nondeterministic interleaving of the real system is recovered
// by varying seeds and adversary strategies, not by racing goroutines.
type Driver struct {
	log *slog.Logger

	Fixture *vtconsensustest.Fixture

	Substrate *vtnetwork.Substrate

	// One entry per validator; nil for Byzantine and offline
	// validators, which run no honest state machine.
	Votors []*vtengine.Votor

	Stores []*vtstore.MemFinalizationStore

	adversary AdversaryStrategy

	now vtnetwork.Tick
}

// NewDriver builds the substrate and one state machine
// per honest validator in the fixture.
func NewDriver(log *slog.Logger, cfg DriverConfig) (*Driver, error) {
	fx := cfg.Fixture

	sub, err := vtnetwork.NewSubstrate(log.With("sys", "network"), cfg.Network, fx.ValSet)
	if err != nil {
		return nil, fmt.Errorf("failed to build substrate: %w", err)
	}

	d := &Driver{
		log: log,

		Fixture: fx,

		Substrate: sub,

		Votors: make([]*vtengine.Votor, len(fx.PrivVals)),
		Stores: make([]*vtstore.MemFinalizationStore, len(fx.PrivVals)),

		adversary: cfg.Adversary,
	}

	for i, pv := range fx.PrivVals {
		if pv.Val.Status != vtconsensus.StatusHonest {
			continue
		}

		store := vtstore.NewMemFinalizationStore()
		d.Stores[i] = store

		v, err := vtengine.NewVotor(
			log.With("sys", "votor", "idx", i),
			vtengine.Config{
				Self:   vtconsensus.ValidatorID(i),
				Signer: pv.Signer,

				ValSet: fx.ValSet,
				Ledger: fx.Ledger,

				Schedule: fx.Schedule,

				HashScheme:  fx.HashScheme,
				SigScheme:   fx.SigScheme,
				ProofScheme: fx.ProofScheme,

				Store: store,

				Timeouts: cfg.Timeouts,
			},
			sub,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build votor %d: %w", i, err)
		}
		d.Votors[i] = v
	}

	return d, nil
}

// Now returns the current tick.
func (d *Driver) Now() vtnetwork.Tick {
	return d.now
}

// Step advances the simulation one tick.
func (d *Driver) Step(ctx context.Context) error {
	d.now++

	if d.adversary != nil {
		if err := d.adversary.Step(ctx, d, d.now); err != nil {
			return fmt.Errorf("adversary step failed at tick %d: %w", d.now, err)
		}
	}

	d.Substrate.Advance(d.now)

	for i, v := range d.Votors {
		if v == nil {
			// Byzantine and offline validators take no honest actions.
			// Their inboxes simply accumulate.
			continue
		}

		for _, m := range d.Substrate.Collect(vtconsensus.ValidatorID(i)) {
			if err := v.HandleMessage(ctx, m.Sender, m.Payload, d.now); err != nil {
				// Stale and invalid messages are expected in adversarial runs.
				d.log.Debug(
					"Validator rejected message",
					"idx", i, "id", m.ID, "err", err,
				)
			}
		}

		if _, err := v.MaybePropose(ctx, d.now); err != nil {
			return fmt.Errorf("validator %d proposal failed: %w", i, err)
		}

		if err := v.Tick(ctx, d.now); err != nil {
			return fmt.Errorf("validator %d timeout failed: %w", i, err)
		}
	}

	return nil
}

// RunUntil steps until done reports true or maxTick is reached,
// returning whether done was satisfied.
func (d *Driver) RunUntil(ctx context.Context, maxTick vtnetwork.Tick, done func(*Driver) bool) (bool, error) {
	for d.now < maxTick {
		if done != nil && done(d) {
			return true, nil
		}
		if err := d.Step(ctx); err != nil {
			return false, err
		}
	}
	return done != nil && done(d), nil
}

// HonestVotors returns the non-nil state machines.
func (d *Driver) HonestVotors() []*vtengine.Votor {
	out := make([]*vtengine.Votor, 0, len(d.Votors))
	for _, v := range d.Votors {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}
