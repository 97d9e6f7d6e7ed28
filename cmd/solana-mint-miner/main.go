package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/screa/solana-mint-miner/internal/config"
	"github.com/screa/solana-mint-miner/internal/crypto"
	logpkg "github.com/screa/solana-mint-miner/internal/logger"
	"github.com/screa/solana-mint-miner/pkg/backup"
	"github.com/screa/solana-mint-miner/pkg/batcher"
	minerpkg "github.com/screa/solana-mint-miner/pkg/miner"
	"github.com/screa/solana-mint-miner/pkg/session"
	"github.com/screa/solana-mint-miner/pkg/store"
)

var (
	cfg     = config.NewConfig()
	envFile string
	logger  *logpkg.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "solana-mint-miner",
		Short: "Generate Solana mint addresses with specific suffixes",
		Long: `A command line utility that searches for Solana keypairs whose address
ends with a given suffix, using every CPU core, and saves them to Supabase.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.IntVarP(&cfg.Count, "count", "c", cfg.Count, "Number of addresses to generate")
	flags.IntVarP(&cfg.BatchSize, "batch-size", "b", cfg.BatchSize, "Batch size for database uploads (0 = upload all at end)")
	flags.BoolVar(&cfg.SaveLocal, "save-local", false, "Save to local file as backup")
	flags.StringVar(&cfg.BackupDir, "backup-dir", cfg.BackupDir, "Directory for local backup files")
	flags.IntVarP(&cfg.Workers, "workers", "w", runtime.NumCPU(), "Number of worker goroutines")
	flags.Uint64Var(&cfg.MaxAttempts, "max-attempts", 0, "Per-worker trial budget for one address (0 = unbounded)")
	flags.DurationVar(&cfg.Timeout, "timeout", 0, "Give up on a single address after this long (0 = never)")
	flags.StringVar(&cfg.Store, "store", cfg.Store, "Remote store backend: rest or postgres")
	flags.StringVar(&cfg.Table, "table", cfg.Table, "Table receiving the addresses")
	flags.Float64Var(&cfg.RequestsPerSec, "rps", 0, "Maximum REST requests per second (0 = unlimited)")
	flags.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "Timeout of a single upload request")
	flags.StringVar(&envFile, "env-file", ".env", "File with SUPABASE_URL / SUPABASE_ANON_KEY / DATABASE_URL")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose output")
	flags.StringVarP(&cfg.LogFile, "log-file", "l", "", "Log file for progress tracking (default: stdout)")
	flags.IntVarP(&cfg.LogInterval, "log-interval", "i", cfg.LogInterval, "Progress logging interval in seconds")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "pump",
			Short: "Generate addresses ending with 'pump' for pump.fun tokens",
			Args:  cobra.NoArgs,
			RunE:  runSearch(config.SuffixPump),
		},
		&cobra.Command{
			Use:   "bonk",
			Short: "Generate addresses ending with 'bonk' for lets.bonk tokens",
			Args:  cobra.NoArgs,
			RunE:  runSearch(config.SuffixBonk),
		},
		&cobra.Command{
			Use:   "both",
			Short: "Generate both pump and bonk addresses",
			Args:  cobra.NoArgs,
			RunE:  runSearch(config.SuffixPump, config.SuffixBonk),
		},
		&cobra.Command{
			Use:   "verify <backup-file>",
			Short: "Check that every private key in a backup file derives its address",
			Args:  cobra.ExactArgs(1),
			RunE:  runVerify,
		},
		&cobra.Command{
			Use:   "upload <backup-file>",
			Short: "Upload the addresses of a backup file to the remote store",
			Args:  cobra.ExactArgs(1),
			RunE:  runUpload,
		},
	)

	return rootCmd
}

func runSearch(suffixes ...string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := cfg.LoadEnv(envFile); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		for _, suffix := range suffixes {
			if err := config.ValidateSuffix(suffix); err != nil {
				return err
			}
		}

		if err := setupLogging(); err != nil {
			return err
		}

		remote, err := store.New(cfg)
		if err != nil {
			return err
		}
		defer remote.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		miner := minerpkg.NewMiner(cfg, logger)
		if len(suffixes) > 1 {
			logger.Infof("Generating %d suffix types sequentially...", len(suffixes))
		}
		for _, suffix := range suffixes {
			if err := runSession(ctx, miner, remote, suffix); err != nil {
				return err
			}
		}
		return nil
	}
}

func runSession(ctx context.Context, miner *minerpkg.Miner, remote store.Store, suffix string) error {
	logger.Infof("Generating %d addresses ending with '%s' using %d workers...", cfg.Count, suffix, miner.Workers())
	logger.Infof("Upload strategy: %s", cfg.GetUploadStrategy())

	var sink session.Appender
	if cfg.SaveLocal {
		w, err := backup.Create(cfg.BackupDir, suffix, time.Now())
		if err != nil {
			return err
		}
		defer w.Close()
		logger.Infof("Saving local backup to: %s", w.Path())
		sink = w
	}

	s := session.New(miner, batcher.New(remote, cfg.BatchSize, logger), sink, logger)
	res, err := s.Run(ctx, suffix, cfg.Count)
	session.Report(logger, res.Stats)
	if err != nil {
		return err
	}

	if cfg.SaveLocal {
		logger.Successf("Local backup saved successfully")
	}
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	if err := setupLogging(); err != nil {
		return err
	}

	entries, err := backup.ReadFile(args[0])
	if err != nil {
		return err
	}

	bad := 0
	for _, e := range entries {
		if err := crypto.VerifyEncodedKey(e.Address, e.PrivateKey); err != nil {
			bad++
			logger.Errorf("%s: %v", e.Address, err)
			continue
		}
		logger.Debugf("%s ok", e.Address)
	}

	if bad > 0 {
		return fmt.Errorf("%d of %d keys failed verification", bad, len(entries))
	}
	logger.Successf("All %d keys verified", len(entries))
	return nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	if err := cfg.LoadEnv(envFile); err != nil {
		return err
	}
	if cfg.BatchSize < 0 {
		return config.ErrInvalidBatch
	}
	if err := cfg.ValidateStore(); err != nil {
		return err
	}
	if err := setupLogging(); err != nil {
		return err
	}

	entries, err := backup.ReadFile(args[0])
	if err != nil {
		return err
	}

	remote, err := store.New(cfg)
	if err != nil {
		return err
	}
	defer remote.Close()

	ctx := cmd.Context()
	b := batcher.New(remote, cfg.BatchSize, logger)
	now := time.Now()

	var saved, failed int
	tally := func(r batcher.FlushResult) {
		saved += r.Saved
		failed += r.Records - r.Saved
	}
	for _, e := range entries {
		if r, flushed := b.Add(ctx, e.Record(now)); flushed {
			tally(r)
		}
	}
	tally(b.Flush(ctx))

	logger.Infof("Uploaded %d of %d addresses (%d failed)", saved, len(entries), failed)
	if failed > 0 {
		return errors.New("some addresses could not be uploaded")
	}
	return nil
}

func setupLogging() error {
	if cfg.LogFile != "" {
		// Log to file
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logger = logpkg.NewWriter(file)
		logger.SetFlags(log.LstdFlags | log.Lmicroseconds)
	} else {
		// Log to stdout
		logger = logpkg.New()
		logger.SetFlags(log.LstdFlags)
	}
	logger.SetVerbose(cfg.Verbose)
	return nil
}
