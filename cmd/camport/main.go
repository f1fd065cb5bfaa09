package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"camport/internal/app"
	"camport/internal/config"
	apperrors "camport/internal/errors"
	"camport/internal/infra/device"
	"camport/internal/infra/exif"
	osfs "camport/internal/infra/fs"
	"camport/internal/infra/mp4"
	"camport/internal/infra/tools"
	"camport/internal/ledger"
	"camport/internal/logging"
	"camport/internal/presentation"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, apperrors.UserMessage(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "camport",
		Short:         "Import and organize photos and videos from a mounted device",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		cfgFile string
		source  string
		dest    string
		ledg    string
		runLog  string
		workers int
		convert bool
		hashID  bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one import session",
		Long: `Run one import session: enumerate the device, resolve capture
dates, skip everything the ledger has already seen, and copy the rest
into the destination tree organized by year and month.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("source") {
				cfg.Source = source
			}
			if flags.Changed("dest") {
				cfg.Dest = dest
			}
			if flags.Changed("ledger") {
				cfg.LedgerPath = ledg
			}
			if flags.Changed("run-log") {
				cfg.RunLogPath = runLog
			}
			if flags.Changed("workers") {
				cfg.Workers = workers
			}
			if flags.Changed("convert") {
				cfg.Convert = convert
			}
			if flags.Changed("hash-identity") {
				cfg.HashIdentity = hashID
			}
			if flags.Changed("verbose") {
				cfg.Verbose = verbose
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&cfgFile, "config", "c", "", "Config file (default camport.yaml)")
	cmd.Flags().StringVarP(&source, "source", "s", "", "Device root to import from")
	cmd.Flags().StringVarP(&dest, "dest", "d", "", "Destination root to import into")
	cmd.Flags().StringVar(&ledg, "ledger", "", "Ledger file (default <dest>/.camport-ledger.jsonl)")
	cmd.Flags().StringVar(&runLog, "run-log", "", "Run log file (default <dest>/import_<time>.log)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "Concurrent copy workers")
	cmd.Flags().BoolVar(&convert, "convert", false, "Produce compatible renditions via ffmpeg/exiftool")
	cmd.Flags().BoolVar(&hashID, "hash-identity", false, "Use content hashes for duplicate detection")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(cfg.Verbose)
	defer logger.Sync()

	led, err := ledger.Open(cfg.LedgerPath, logger)
	if err != nil {
		return err
	}
	defer led.Close()

	filesystem := osfs.OSFS{}
	dev := &device.Local{
		FS:      filesystem,
		Root:    cfg.Source,
		Subdirs: cfg.SourceSubdirs,
		Retries: cfg.RetryCount,
		Backoff: cfg.RetryBackoff,
		Logger:  logger,
	}
	runner := tools.Runner{Timeout: cfg.ToolTimeout, Logger: logger}

	session := &app.Session{
		Device: dev,
		FS:     filesystem,
		Ledger: led,
		Resolver: &app.Resolver{
			Device:    dev,
			Photo:     exif.Reader{},
			Video:     mp4.Reader{},
			Workers:   cfg.Workers,
			ClockSkew: cfg.ClockSkew,
			Logger:    logger,
		},
		Planner: &app.Planner{
			MonthNames:     cfg.MonthNames,
			OrganizeByDate: cfg.OrganizeByDate,
			Logger:         logger,
		},
		Copier: &app.Copier{
			Device:       dev,
			FS:           filesystem,
			Ledger:       led,
			Workers:      cfg.Workers,
			RetryCount:   cfg.RetryCount,
			RetryBackoff: cfg.RetryBackoff,
			Logger:       logger,
		},
		Converter: &app.Converter{
			Transcoder: tools.NewFFmpeg(cfg.ToolsDir, runner),
			Metadata:   tools.NewExifTool(cfg.ToolsDir, runner),
			Logger:     logger,
		},
		Options: app.Options{
			DestRoot:       cfg.Dest,
			RunLogPath:     cfg.RunLogPath,
			Extensions:     cfg.Extensions(),
			Convert:        cfg.Convert,
			HashIdentity:   cfg.HashIdentity,
			HashMaxBytes:   cfg.HashMaxBytes,
			OrganizeByDate: cfg.OrganizeByDate,
		},
		Logger: logger,
	}

	result, err := session.Run(ctx)
	if err != nil {
		return err
	}

	printer := presentation.Printer{Writer: os.Stdout}
	printer.PrintReport(result.RunReport)
	if result.RunLogPath != "" {
		fmt.Printf("\nRun log: %s\n", result.RunLogPath)
	}
	return nil
}
