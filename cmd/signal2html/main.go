// signal2html converts a decrypted Signal backup into browsable HTML pages,
// a JSONL stream and/or a searchable SQLite archive.
//
// Usage:
//
//	signal2html -i backup/ -o output/
//	signal2html -i backup/ -o output/ -format html,archive -workers 4
//	signal2html -config signal2html.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"signal2html/pkg/export"
	"signal2html/pkg/exportconfig"
)

var (
	inputDir  = flag.String("i", "", "Backup directory containing database.sqlite and DatabaseVersion.sbf")
	outputDir = flag.String("o", "", "Output directory")
	cfgPath   = flag.String("config", "", "Path to signal2html.yaml (auto-detected if not specified)")
	formats   = flag.String("format", "", "Comma-separated output formats: html, jsonl, archive")
	workers   = flag.Int("workers", 0, "Number of threads exported in parallel")
	seed      = flag.Uint64("seed", 0, "Seed for colors of recipients without a stored color")
	noCopy    = flag.Bool("no-attachments", false, "Do not copy attachment files")
	keepEmpty = flag.Bool("keep-empty", false, "Also export threads without messages")
	verbose   = flag.Bool("v", false, "Enable debug logging")
	quiet     = flag.Bool("q", false, "Only log warnings and errors")
)

func main() {
	flag.Parse()

	cfg, err := exportconfig.LoadFromFlagOrDir(*cfgPath, ".")
	if err != nil {
		setupLogging("info")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	applyFlags(cfg)
	setupLogging(cfg.Logging.Level)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.Input.BackupDir == "" || cfg.Output.Dir == "" {
		flag.Usage()
		os.Exit(2)
	}

	opts, err := export.OptionsFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	sinks, err := export.OpenSinks(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open outputs")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	progress := func(done, total int) {
		if done%50 == 0 || done == total {
			log.Info().Int("done", done).Int("total", total).Msg("Progress")
		}
	}
	stats, err := export.Run(ctx, opts, sinks, log.Logger, progress)
	if err != nil {
		_ = sinks.Close()
		log.Fatal().Err(err).Msg("Export failed")
	}
	if err := sinks.RecordProvenance(stats, cfg); err != nil {
		log.Warn().Err(err).Msg("Failed to record archive metadata")
	}
	if err := sinks.Close(); err != nil {
		log.Fatal().Err(err).Msg("Failed to close outputs")
	}

	fmt.Println()
	fmt.Println("============================================================")
	fmt.Println("EXPORT COMPLETE")
	fmt.Println("============================================================")
	fmt.Printf("Schema version: %d\n", stats.Version.Version())
	fmt.Printf("Recipients: %d\n", stats.Recipients)
	fmt.Printf("Threads exported: %d (skipped empty: %d)\n", stats.Threads, stats.SkippedThreads)
	fmt.Printf("Messages: %d SMS, %d MMS\n", stats.SMS, stats.MMS)
	fmt.Printf("Attachments: %d (missing: %d)\n", stats.Attachments, stats.MissingAttachments)
	fmt.Printf("Reactions: %d, mentions: %d\n", stats.Reactions, stats.Mentions)
	if stats.DegradedPayloads > 0 {
		fmt.Printf("Undecodable payloads: %d\n", stats.DegradedPayloads)
	}
	fmt.Printf("Output written to: %s (%s)\n", cfg.Output.Dir, time.Since(start).Round(time.Millisecond))
}

func applyFlags(cfg *exportconfig.Config) {
	if *inputDir != "" {
		cfg.Input.BackupDir = *inputDir
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *formats != "" {
		cfg.Output.Formats = nil
		for _, f := range strings.Split(*formats, ",") {
			if f = strings.TrimSpace(f); f != "" {
				cfg.Output.Formats = append(cfg.Output.Formats, f)
			}
		}
	}
	if *workers > 0 {
		cfg.Processing.Workers = *workers
	}
	if *seed != 0 {
		cfg.Colors.Seed = *seed
	}
	if *noCopy {
		cfg.Output.CopyAttachments = false
	}
	if *keepEmpty {
		cfg.Processing.SkipEmptyThreads = false
	}
	switch {
	case *verbose:
		cfg.Logging.Level = "debug"
	case *quiet:
		cfg.Logging.Level = "warn"
	}
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: colorable.NewColorableStderr(), TimeFormat: time.TimeOnly})
}
