package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"signal2html/pkg/exportconfig"
	"signal2html/pkg/sink"
)

// Sinks holds the outputs selected by the configuration.
type Sinks struct {
	sink.Multi
	Archive *sink.Archive
}

// OpenSinks creates every sink enabled in cfg.Output.Formats.
func OpenSinks(cfg *exportconfig.Config, log zerolog.Logger) (*Sinks, error) {
	s := &Sinks{}
	for _, format := range cfg.Output.Formats {
		switch format {
		case exportconfig.FormatHTML:
			s.Multi = append(s.Multi, sink.NewHTML(cfg.Output.Dir, log))
		case exportconfig.FormatJSONL:
			j, err := sink.CreateJSONL(filepath.Join(cfg.Output.Dir, "conversations.jsonl"))
			if err != nil {
				_ = s.Close()
				return nil, err
			}
			s.Multi = append(s.Multi, j)
		case exportconfig.FormatArchive:
			path := cfg.ArchivePath()
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				_ = s.Close()
				return nil, fmt.Errorf("failed to create archive directory: %w", err)
			}
			a, err := sink.OpenArchive(path)
			if err != nil {
				_ = s.Close()
				return nil, fmt.Errorf("failed to open archive: %w", err)
			}
			s.Archive = a
			s.Multi = append(s.Multi, a)
		default:
			_ = s.Close()
			return nil, fmt.Errorf("unknown output format %q", format)
		}
	}
	return s, nil
}

// RecordProvenance stores where the archive content came from.
func (s *Sinks) RecordProvenance(stats *Stats, cfg *exportconfig.Config) error {
	if s.Archive == nil {
		return nil
	}
	store := s.Archive.Store()
	for key, value := range map[string]string{
		"backup_version": strconv.Itoa(stats.Version.Version()),
		"config_hash":    cfg.Hash(),
		"exported_at":    time.Now().UTC().Format(time.RFC3339),
	} {
		if err := store.SetSyncMetadata(key, value); err != nil {
			return fmt.Errorf("failed to record %s: %w", key, err)
		}
	}
	return nil
}
