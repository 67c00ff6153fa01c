package vtengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus"
	"github.com/alpenglow-engine/alpenglow/votor/vtnetwork"
	"github.com/benbjohnson/clock"
)

// RunnerConfig holds the configuration required to start a [Runner].
type RunnerConfig struct {
	Votor *Votor

	Substrate *vtnetwork.Substrate

	// Source of wall time; tests inject a mock clock.
	Clock clock.Clock

	// How much wall time one protocol tick represents.
	TickInterval time.Duration
}

func (c RunnerConfig) validate() error {
	if c.Votor == nil {
		return errors.New("runner config: Votor required")
	}
	if c.Substrate == nil {
		return errors.New("runner config: Substrate required")
	}
	if c.Clock == nil {
		return errors.New("runner config: Clock required")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("runner config: TickInterval must be positive, got %v", c.TickInterval)
	}
	return nil
}

// Runner drives one validator's state machine in real time:
// one goroutine per validator, advancing the substrate,
// draining the inbox, and firing timeouts on each clock tick.
//
// Validators communicate only through the substrate;
// concurrent Advance calls from sibling runners are safe
// and each message is still delivered exactly once.
type Runner struct {
	log *slog.Logger

	cfg RunnerConfig

	done chan struct{}
}

// NewRunner starts the runner's background goroutine.
// Stop it by canceling ctx and calling Wait.
func NewRunner(ctx context.Context, log *slog.Logger, cfg RunnerConfig) (*Runner, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	r := &Runner{
		log: log,

		cfg: cfg,

		done: make(chan struct{}),
	}
	go r.run(ctx)

	return r, nil
}

// Wait blocks until the runner's goroutine has exited.
func (r *Runner) Wait() {
	<-r.done
}

func (r *Runner) run(ctx context.Context) {
	defer close(r.done)

	ticker := r.cfg.Clock.Ticker(r.cfg.TickInterval)
	defer ticker.Stop()

	v := r.cfg.Votor
	sub := r.cfg.Substrate
	self := v.Self()

	var now vtconsensus.Tick

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Runner stopping", "cause", context.Cause(ctx))
			return

		case <-ticker.C:
			now++

			sub.Advance(now)

			for _, m := range sub.Collect(self) {
				if err := v.HandleMessage(ctx, m.Sender, m.Payload, now); err != nil {
					// Per-message failures are local; reject and continue.
					r.log.Debug(
						"Rejected message",
						"id", m.ID, "sender", m.Sender, "err", err,
					)
				}
			}

			if _, err := v.MaybePropose(ctx, now); err != nil {
				r.log.Warn("Proposal failed", "tick", now, "err", err)
			}

			if err := v.Tick(ctx, now); err != nil {
				r.log.Warn("Timeout handling failed", "tick", now, "err", err)
			}
		}
	}
}
