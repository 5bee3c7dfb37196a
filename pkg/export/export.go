// Package export runs the whole pipeline for one backup: it checks the
// directory, loads the addressbook, builds and renders every thread and
// hands the result to the output sinks.
package export

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"signal2html/pkg/addressbook"
	"signal2html/pkg/backup"
	"signal2html/pkg/colors"
	"signal2html/pkg/exportconfig"
	"signal2html/pkg/models"
	"signal2html/pkg/records"
	"signal2html/pkg/render"
	"signal2html/pkg/signaldb"
	"signal2html/pkg/sink"
	"signal2html/pkg/versioninfo"
)

type Options struct {
	BackupDir    string
	DatabaseFile string
	VersionFile  string
	// OutputDir receives copied attachments. Empty disables copying.
	OutputDir        string
	Workers          int
	SkipEmptyThreads bool
	Location         *time.Location
	Colors           colors.Source
}

// OptionsFromConfig converts the loaded configuration.
func OptionsFromConfig(cfg *exportconfig.Config) (Options, error) {
	opts := Options{
		BackupDir:        cfg.Input.BackupDir,
		DatabaseFile:     cfg.Input.DatabaseFile,
		VersionFile:      cfg.Input.VersionFile,
		Workers:          cfg.Processing.Workers,
		SkipEmptyThreads: cfg.Processing.SkipEmptyThreads,
		Colors:           colors.NewRandomSource(cfg.Colors.Seed),
	}
	if cfg.Output.CopyAttachments {
		opts.OutputDir = cfg.Output.Dir
	}
	if cfg.Output.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Output.Timezone)
		if err != nil {
			return opts, fmt.Errorf("invalid output.timezone: %w", err)
		}
		opts.Location = loc
	}
	return opts, nil
}

// Stats summarizes one export.
type Stats struct {
	Version        versioninfo.VersionInfo
	Threads        int
	SkippedThreads int
	Recipients     int
	records.Stats
}

// ProgressFunc is called after every finished thread.
type ProgressFunc func(done, total int)

// Run exports the backup described by opts into out. A missing database or
// version file and any unreadable row abort the run.
func Run(ctx context.Context, opts Options, out sink.Sink, log zerolog.Logger, progress ProgressFunc) (*Stats, error) {
	b, err := backup.Check(opts.BackupDir, opts.DatabaseFile, opts.VersionFile)
	if err != nil {
		return nil, err
	}
	vi, err := b.Version(log)
	if err != nil {
		return nil, err
	}

	db, err := signaldb.Open(b.DatabasePath, vi)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	palette := opts.Colors
	if palette == nil {
		palette = colors.NewRandomSource(0)
	}
	book, err := addressbook.Load(ctx, db, vi, palette, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load addressbook: %w", err)
	}

	files := &backup.FileResolver{BackupDir: b.Dir, OutputDir: opts.OutputDir}
	builder := records.NewBuilder(db, book, files, log)
	threads, err := builder.Threads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	models.AssignOutputNames(threads)
	renderer := render.New(opts.Location, log)

	stats := &Stats{Version: vi}
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for _, t := range threads {
		g.Go(func() error {
			threadStats, err := builder.Build(gctx, t)
			if err != nil {
				return fmt.Errorf("failed to build thread %d: %w", t.ID, err)
			}

			skip := opts.SkipEmptyThreads && t.IsEmpty()
			if !skip {
				if err := out.WriteConversation(gctx, renderer.Conversation(t)); err != nil {
					return fmt.Errorf("failed to write thread %d: %w", t.ID, err)
				}
			}

			mu.Lock()
			defer mu.Unlock()
			stats.Stats.Add(threadStats)
			if skip {
				stats.SkippedThreads++
				log.Debug().Int64("thread_id", t.ID).Msg("Skipping empty thread")
			} else {
				stats.Threads++
			}
			done++
			if progress != nil {
				progress(done, len(threads))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	stats.Recipients = len(book.Recipients())

	log.Info().
		Int("threads", stats.Threads).
		Int("skipped_threads", stats.SkippedThreads).
		Int("sms", stats.SMS).
		Int("mms", stats.MMS).
		Int("attachments", stats.Attachments).
		Int("missing_attachments", stats.MissingAttachments).
		Int("degraded_payloads", stats.DegradedPayloads).
		Msg("Export finished")
	return stats, nil
}
