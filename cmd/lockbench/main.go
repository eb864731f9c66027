// Command lockbench runs the lock benchmark harness from the command line.
//
//	lockbench --measure 1s --threads 1,2,4-8 --locked 0s,1us --unlocked 0s
//
// Integer lists enumerate ranges ("4-8" runs a case per thread count);
// duration lists randomize ranges ("10ns-1us" draws per cycle).
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-adaptive-locks/bench"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		measure  string
		threads  string
		locked   string
		unlocked string
		locks    []string
	)

	cmd := &cobra.Command{
		Use:   "lockbench",
		Short: "Benchmark the lock variants against each other and sync.Mutex",
		Long: `lockbench spawns N OS-thread-pinned workers per benchmark case, each looping
acquire -> busy work -> release -> busy work, and reports completed cycles
per second for every selected lock, relative to the sync.Mutex baseline.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(measure, threads, locked, unlocked, locks)
			if err != nil {
				return err
			}
			results, err := bench.Run(cfg)
			if err != nil {
				return err
			}
			return bench.Report(cmd.OutOrStdout(), results)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&measure, "measure", "1s",
		"CSV of measurement windows per case (durations, ranges randomized)")
	flags.StringVar(&threads, "threads", "1,2,4",
		"CSV of worker counts per case (integers, ranges enumerated)")
	flags.StringVar(&locked, "locked", "0s",
		"CSV of busy-work durations inside the lock (ranges drawn per cycle)")
	flags.StringVar(&unlocked, "unlocked", "0s",
		"CSV of busy-work durations outside the lock (ranges drawn per cycle)")
	flags.StringSliceVar(&locks, "locks", nil,
		"lock variants to run, default all of: "+strings.Join(bench.Names(), ","))

	return cmd
}

func buildConfig(measure, threads, locked, unlocked string, locks []string) (bench.Config, error) {
	var (
		cfg bench.Config
		err error
	)
	if cfg.Measure, err = bench.ParseDurationRanges(measure); err != nil {
		return cfg, err
	}
	if cfg.Threads, err = bench.ParseCounts(threads); err != nil {
		return cfg, err
	}
	if cfg.Locked, err = bench.ParseDurationRanges(locked); err != nil {
		return cfg, err
	}
	if cfg.Unlocked, err = bench.ParseDurationRanges(unlocked); err != nil {
		return cfg, err
	}
	cfg.Locks = locks
	return cfg, nil
}
