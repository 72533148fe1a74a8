package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/kocubinski/avl-ledger/bench"
	"github.com/kocubinski/avl-ledger/checkpoint"
	"github.com/kocubinski/avl-ledger/ledger"
)

type runConfig struct {
	workers           int
	versions          int
	versionLimit      int64
	seed              int64
	retryBudget       int
	rebalanceOnDelete bool
	ledgerOptions     string
	metricsAddr       string
	checkpointDir     string
}

func runCommand() *cobra.Command {
	cfg := &runConfig{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "commit generated changesets into a ledger from concurrent workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, cfg)
		},
	}
	cmd.Flags().IntVar(&cfg.workers, "workers", 4, "number of concurrent committers")
	cmd.Flags().IntVar(&cfg.versions, "versions", 1_000, "number of generated changesets")
	cmd.Flags().Int64Var(&cfg.versionLimit, "version-limit", 0, "stop after this many changesets (0 for all)")
	cmd.Flags().Int64Var(&cfg.seed, "seed", 0, "generator seed")
	cmd.Flags().IntVar(&cfg.retryBudget, "retry-budget", ledger.DefaultRetryBudget, "extra commit attempts after a lost publish")
	cmd.Flags().BoolVar(&cfg.rebalanceOnDelete, "rebalance-on-delete", false, "rebalance the tree on delete")
	cmd.Flags().StringVar(&cfg.ledgerOptions, "ledger-options", "", "ledger options as JSON; overrides the individual flags")
	cmd.Flags().StringVar(&cfg.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	cmd.Flags().StringVar(&cfg.checkpointDir, "checkpoint-dir", "", "save published snapshots to a LevelDB checkpoint in this directory")
	return cmd
}

func (cfg *runConfig) options(cmd *cobra.Command) (ledger.Options, error) {
	opts := ledger.DefaultOptions()
	opts.RetryBudget = cfg.retryBudget
	opts.RebalanceOnDelete = cfg.rebalanceOnDelete
	if cmd.Flags().Changed("ledger-options") {
		parsed, err := ledger.ParseOptions(cfg.ledgerOptions)
		if err != nil {
			return opts, err
		}
		opts.RetryBudget = parsed.RetryBudget
		opts.RebalanceOnDelete = parsed.RebalanceOnDelete
	}
	if opts.RetryBudget < 0 {
		return opts, fmt.Errorf("retry budget must not be negative, got %d", opts.RetryBudget)
	}
	return opts, nil
}

func runBench(cmd *cobra.Command, cfg *runConfig) error {
	opts, err := cfg.options(cmd)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	opts.Logger = log
	opts.Metrics = ledger.NewMetrics(reg, "ledger")
	factory := promauto.With(reg)

	if cfg.metricsAddr != "" {
		srv := &http.Server{
			Addr:    cfg.metricsAddr,
			Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer srv.Close()
		log.Info().Str("addr", cfg.metricsAddr).Msg("serving metrics")
	}

	var hooks []ledger.PublishHook[[]byte]
	var writer *checkpoint.Writer[[]byte]
	if cfg.checkpointDir != "" {
		store, err := checkpoint.Open[[]byte](cfg.checkpointDir, checkpoint.BytesCodec{})
		if err != nil {
			return err
		}
		defer store.Close()
		writer = checkpoint.NewWriter(store, log)
		hooks = append(hooks, writer.Hook())
	}

	led := ledger.NewWithOptions(opts, hooks...)
	ctx := &bench.Context{
		Context: cmd.Context(),
		Log:     log,
		Generators: []bench.ChangesetGenerator{
			bench.BankLikeGenerator(cfg.seed, cfg.versions),
			bench.LockupLikeGenerator(cfg.seed, cfg.versions),
			bench.StakingLikeGenerator(cfg.seed, cfg.versions),
		},
		Workers:      cfg.workers,
		VersionLimit: cfg.versionLimit,
		MetricLeafCount: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_bench_leaves_total",
			Help: "generated leaves applied to the ledger",
		}),
		MetricTxAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ledger_bench_tx_attempts",
			Help:    "attempts per worker transaction, including resubmissions",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}

	res, runErr := ctx.Run(led)
	if writer != nil {
		if err := writer.Close(); err != nil {
			return errors.Join(runErr, fmt.Errorf("checkpoint writer: %w", err))
		}
	}
	if runErr != nil {
		return runErr
	}

	head := led.Current()
	fmt.Fprintf(cmd.OutOrStdout(),
		"versions=%d leaves=%s commits=%s conflicts=%s resubmits=%s head=%d keys=%s took=%s\n",
		res.Versions,
		humanize.Comma(res.Leaves),
		humanize.Comma(res.Commits),
		humanize.Comma(res.Conflicts),
		humanize.Comma(res.Resubmits),
		head.Version(),
		humanize.Comma(int64(head.Len())),
		res.Duration)
	return nil
}
