// Command alpenglow-sim runs a deterministic, in-process simulation
// of the dual-path consensus core over the partial-synchrony substrate
// and prints each validator's finalized chain.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	petname "github.com/dustinkirkland/golang-petname"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus"
	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus/vtconsensustest"
	"github.com/alpenglow-engine/alpenglow/votor/vtengine"
	"github.com/alpenglow-engine/alpenglow/votor/vtintegration"
	"github.com/alpenglow-engine/alpenglow/votor/vtnetwork"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alpenglow-sim",
		Short: "Deterministic simulator for the Alpenglow consensus core",

		SilenceUsage: true,
	}

	cmd.AddCommand(runCommand())

	return cmd
}

func runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation and print the finalized chains",

		RunE: func(cmd *cobra.Command, _ []string) error {
			v := viper.New()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}

			v.SetEnvPrefix("ALPENGLOW")
			v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			v.AutomaticEnv()

			if cfgFile := v.GetString("config"); cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("failed to read config file: %w", err)
				}
			}

			return runSim(cmd.Context(), v, cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()

	fs.String("config", "", "Optional config file; flags and ALPENGLOW_* env vars override it")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")

	fs.IntSlice("stakes", []int{30, 25, 20, 15, 10}, "Stake per validator")

	fs.Uint64("delta", 3, "Post-GST delivery bound in ticks")
	fs.Uint64("gst", 0, "Global stabilization time; zero is synchronous from the start")
	fs.Uint64("partition-timeout", 100, "Maximum ticks a partition may stay unhealed")
	fs.Int("congestion-factor", 8, "Queue length per extra tick of post-GST delay")
	fs.Int64("delay-seed", 1, "Seed for the pre-GST adversarial delay source")

	fs.Uint64("window-size", 4, "Views per leader window")
	fs.Uint64("timeout-base", 50, "Base view timeout in ticks")
	fs.Uint64("timeout-max", 800, "Maximum view timeout in ticks")

	fs.Uint64("slots", 5, "Stop once every validator has finalized this many slots")
	fs.Uint64("max-ticks", 10_000, "Give up after this many ticks")

	return cmd
}

func runSim(ctx context.Context, v *viper.Viper, out io.Writer) error {
	log, err := newLogger(v.GetString("log-level"))
	if err != nil {
		return err
	}

	rawStakes := v.GetIntSlice("stakes")
	if len(rawStakes) == 0 {
		return fmt.Errorf("at least one validator stake required")
	}
	stakes := make([]uint64, len(rawStakes))
	for i, s := range rawStakes {
		if s <= 0 {
			return fmt.Errorf("stake for validator %d must be positive, got %d", i, s)
		}
		stakes[i] = uint64(s)
	}

	fx := vtconsensustest.NewFixture(stakes)
	fx.Schedule.WindowSize = v.GetUint64("window-size")

	base := vtconsensus.Tick(v.GetUint64("timeout-base"))
	d, err := vtintegration.NewDriver(log, vtintegration.DriverConfig{
		Fixture: fx,

		Network: vtnetwork.Config{
			Delta:            vtnetwork.Tick(v.GetUint64("delta")),
			GST:              vtnetwork.Tick(v.GetUint64("gst")),
			PartitionTimeout: vtnetwork.Tick(v.GetUint64("partition-timeout")),
			CongestionFactor: v.GetInt("congestion-factor"),
			DelaySeed:        v.GetInt64("delay-seed"),
		},

		Timeouts: vtengine.ExponentialTimeoutStrategy{
			Base: base,
			Min:  base,
			Max:  vtconsensus.Tick(v.GetUint64("timeout-max")),

			WindowSize: v.GetUint64("window-size"),
		},
	})
	if err != nil {
		return err
	}

	// Human-friendly validator labels for the report.
	names := make([]string, len(stakes))
	for i := range names {
		names[i] = petname.Generate(2, "-")
	}

	target := v.GetUint64("slots")
	maxTicks := vtnetwork.Tick(v.GetUint64("max-ticks"))

	done := func(d *vtintegration.Driver) bool {
		for _, vt := range d.HonestVotors() {
			if vt.Slot() <= target {
				return false
			}
		}
		return true
	}

	log.Info(
		"Starting simulation",
		"validators", len(stakes), "target_slots", target, "max_ticks", maxTicks,
	)

	ok, err := d.RunUntil(ctx, maxTicks, done)
	if err != nil {
		return err
	}

	printReport(out, d, names)

	if !ok {
		return fmt.Errorf("finalization target not reached within %d ticks", maxTicks)
	}
	return nil
}

func printReport(out io.Writer, d *vtintegration.Driver, names []string) {
	fmt.Fprintf(out, "simulation stopped at tick %d\n", d.Now())

	for i, v := range d.Votors {
		label := fmt.Sprintf("%d (%s, stake %d)", i, names[i], d.Fixture.Ledger.StakeOf(vtconsensus.ValidatorID(i)))

		if v == nil {
			fmt.Fprintf(out, "validator %s: not honest, no state machine\n", label)
			continue
		}

		chain := v.FinalizedChain()
		fmt.Fprintf(out, "validator %s: view %d, %d finalized\n", label, v.View(), len(chain))

		for _, b := range chain {
			fin, err := d.Stores[i].LoadFinalizationBySlot(context.Background(), b.Slot)
			if err != nil {
				fmt.Fprintf(out, "  slot %d: missing finalization record: %v\n", b.Slot, err)
				continue
			}
			fmt.Fprintf(out,
				"  slot %d: view %d, %s, block %.8x (proposer %d)\n",
				b.Slot, fin.View, fin.CertType, b.Hash, b.Proposer,
			)
		}

		for _, ev := range v.Evidence() {
			fmt.Fprintf(out,
				"  evidence: %s against validator %d (slot %d, view %d)\n",
				ev.Type, ev.Accused, ev.Slot, ev.View,
			)
		}
	}
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})), nil
}
