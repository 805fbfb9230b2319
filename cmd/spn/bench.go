package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jedisct1/go-spn"
	"github.com/jedisct1/go-spn/internal/bench"
	"github.com/jedisct1/go-spn/internal/config"
	"github.com/jedisct1/go-spn/internal/instrument"
	"github.com/jedisct1/go-spn/internal/log"
	"github.com/jedisct1/go-spn/internal/report"
	"github.com/jedisct1/go-spn/internal/store"
)

func loadConfig(f string) (*config.Config, error) {
	if f == "" {
		return config.Default(), nil
	}
	return config.LoadFile(f)
}

func newBenchCommand() *cobra.Command {
	var (
		configFile string
		rngSeed    string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run the statistical harness",
		Long: `Run the correctness, performance, diffusion, confusion and key equivalence
tests for every configured seed size, then write the reports configured in
the [Output] section. Without a configuration file the defaults are used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			if rngSeed != "" {
				cfg.Bench.RNGSeed = rngSeed
				if _, err := cfg.Bench.Seed(); err != nil {
					return err
				}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBench(ctx, cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to the harness configuration file (TOML format)")
	cmd.Flags().StringVar(&rngSeed, "rng-seed", "", "hex encoded 32 byte run seed, overrides the configuration")
	return cmd
}

func runBench(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	backend, err := log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		return err
	}
	defer backend.Close()
	logger := backend.GetLogger("spn")

	metrics := instrument.New()
	if cfg.Metrics.Address != "" {
		mctx, cancel := context.WithCancel(ctx)
		defer cancel()
		addr, _, err := metrics.Listen(mctx, cfg.Metrics.Address)
		if err != nil {
			return fmt.Errorf("failed to start metrics listener: %v", err)
		}
		logger.Noticef("Serving metrics on http://%v/metrics", addr)
	}

	h, err := bench.New(cfg.Bench, backend, metrics)
	if err != nil {
		return err
	}
	logger.Noticef("Run seed: %s", h.Seed())

	r, err := h.Run(ctx)
	if err != nil {
		logger.Errorf("Run failed: %v", err)
		return err
	}
	if err := writeReports(cfg.Output, r); err != nil {
		logger.Errorf("Failed to write reports: %v", err)
		return err
	}

	if cfg.Output.DataDir != "" {
		s, err := store.Open(cfg.Output.DataDir)
		if err != nil {
			return err
		}
		id, err := s.Put(r)
		if cerr := s.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		logger.Noticef("Archived as run %d", id)
	}

	if cfg.Output.TextFile == "" {
		return r.WriteText(cmd.OutOrStdout())
	}
	return nil
}

func writeReports(out *config.Output, r *report.Report) error {
	if out.JSONFile != "" {
		b, err := r.MarshalJSON()
		if err != nil {
			return err
		}
		if err := os.WriteFile(out.JSONFile, b, 0644); err != nil {
			return err
		}
	}
	if out.CBORFile != "" {
		b, err := r.MarshalCBOR()
		if err != nil {
			return err
		}
		if err := os.WriteFile(out.CBORFile, b, 0644); err != nil {
			return err
		}
	}
	if out.TextFile != "" {
		f, err := os.Create(out.TextFile)
		if err != nil {
			return err
		}
		if err := r.WriteText(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return nil
}

func newTestbenchCommand() *cobra.Command {
	var (
		seedBits string
		seedLen  int
		rngSeed  string
		params   bench.TestbenchParams
		workers  int
	)

	cmd := &cobra.Command{
		Use:   "testbench",
		Short: "Quality report for a single seed",
		Long: `Measure one seed: mean ENC and DEC time, collisions among keys derived from
random seeds of the same length, and the number of ciphertext bits changed
when one bit of the message or of the seed is flipped.

The last line of output is tab separated: ENC+DEC time in microseconds,
collisions, mean diffusion and mean confusion.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			cfg.Bench.RNGSeed = rngSeed
			if workers > 0 {
				cfg.Bench.Workers = workers
			}
			backend, err := log.New("", "WARNING", false)
			if err != nil {
				return err
			}
			h, err := bench.New(cfg.Bench, backend, nil)
			if err != nil {
				return err
			}

			var seed spn.Bits
			if seedBits != "" {
				if seed, err = parseArg("seed-bits", seedBits); err != nil {
					return err
				}
			} else {
				if seedLen < 1 {
					return fmt.Errorf("invalid argument: --seed-len must be positive")
				}
				seed = h.RandomSeed(seedLen)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			res, err := h.RunTestbench(ctx, seed, params)
			if err != nil {
				return err
			}
			return res.WriteText(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&seedBits, "seed-bits", "", "seed as a string of 0 and 1, e.g. 010011")
	cmd.Flags().IntVar(&seedLen, "seed-len", 10, "draw a random seed of N bits")
	cmd.Flags().IntVar(&params.Runs, "runs", 4000, "ENC/DEC calls for the timing test")
	cmd.Flags().IntVar(&params.Trials, "trials", 300, "trials for the diffusion and confusion tests")
	cmd.Flags().IntVar(&params.EquivKeys, "equiv-keys", 3000, "seeds for the equivalent keys test")
	cmd.Flags().StringVar(&rngSeed, "rng-seed", "", "hex encoded 32 byte run seed")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel trials, 0 for one per CPU")
	cmd.MarkFlagsMutuallyExclusive("seed-bits", "seed-len")
	return cmd
}
