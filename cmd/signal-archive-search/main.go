// signal-archive-search queries an archive written by signal2html.
//
// Usage:
//
//	signal-archive-search -db output/archive.db "lunch"
//	signal-archive-search -db output/archive.db -sender alice
//	signal-archive-search -db output/archive.db -thread 12 -limit 50
//	signal-archive-search -db output/archive.db -threads
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"signal2html/pkg/archive"
	"signal2html/pkg/exportconfig"
	"signal2html/pkg/util"
)

var (
	dbPath      = flag.String("db", "", "Path to the archive database (defaults to output.archive_db from config)")
	cfgPath     = flag.String("config", "", "Path to signal2html.yaml (auto-detected if not specified)")
	limit       = flag.Int("limit", 20, "Maximum number of results")
	sender      = flag.String("sender", "", "List messages from senders whose name contains this")
	threadID    = flag.Int64("thread", 0, "Show the latest messages of a thread")
	before      = flag.Int64("before", 0, "With -thread, only messages before this timestamp (ms)")
	listThreads = flag.Bool("threads", false, "List threads by last activity")
	showStats   = flag.Bool("stats", false, "Print archive statistics")
	debug       = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: colorable.NewColorableStderr()})

	path := *dbPath
	if path == "" {
		cfg, err := exportconfig.LoadFromFlagOrDir(*cfgPath, ".")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		path = cfg.ArchivePath()
	}
	if _, err := os.Stat(path); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Archive not found")
	}

	store, err := archive.New(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to open archive")
	}
	defer store.Close()

	switch {
	case *showStats:
		printStats(store)
	case *listThreads:
		printThreads(store)
	case *threadID != 0:
		messages, err := store.GetConversation(*threadID, *limit, *before)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load conversation")
		}
		// newest first from the store, print oldest first
		for i := len(messages) - 1; i >= 0; i-- {
			printMessage(messages[i])
		}
	case *sender != "":
		messages, err := store.GetMessagesBySenderName(*sender, *limit)
		if err != nil {
			log.Fatal().Err(err).Msg("Search failed")
		}
		printMessages(messages)
	default:
		query := strings.Join(flag.Args(), " ")
		if query == "" {
			flag.Usage()
			os.Exit(2)
		}
		messages, err := store.SearchMessages(query, *limit)
		if err != nil {
			log.Fatal().Err(err).Str("query", query).Msg("Search failed")
		}
		printMessages(messages)
	}
}

func printMessages(messages []archive.Message) {
	if len(messages) == 0 {
		fmt.Println("No messages found.")
		return
	}
	for _, m := range messages {
		printMessage(m)
	}
}

func printMessage(m archive.Message) {
	ts := time.UnixMilli(m.TimestampMs).Format("2006-01-02 15:04")
	text := m.Text
	if text == "" {
		text = "[" + m.Type + "]"
	}
	fmt.Printf("%s  %-20s  %-20s  %s\n", ts, util.Truncate(m.ThreadName, 20), util.Truncate(m.SenderName, 20), util.Truncate(text, 200))
}

func printThreads(store *archive.Archive) {
	threads, err := store.ListThreads(*limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list threads")
	}
	for _, t := range threads {
		kind := "direct"
		if t.IsGroup {
			kind = "group"
		}
		last := time.UnixMilli(t.LastActivityMs).Format("2006-01-02")
		fmt.Printf("%6d  %-6s  %s  %-30s  %s\n", t.ID, kind, last, util.Truncate(t.Name, 30), util.Truncate(t.Subtitle, 60))
	}
}

func printStats(store *archive.Archive) {
	stats, err := store.GetStats()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read statistics")
	}
	fmt.Printf("Contacts: %d\n", stats.ContactCount)
	fmt.Printf("Threads: %d\n", stats.ThreadCount)
	fmt.Printf("Messages: %d\n", stats.MessageCount)
	fmt.Printf("Attachments: %d\n", stats.AttachmentCount)
	fmt.Printf("Reactions: %d\n", stats.ReactionCount)
	for _, key := range []string{"backup_version", "exported_at"} {
		if v, err := store.GetSyncMetadata(key); err == nil && v != "" {
			fmt.Printf("%s: %s\n", key, v)
		}
	}
}
