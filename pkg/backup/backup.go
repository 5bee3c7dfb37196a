// Package backup locates the files of a decrypted Signal backup directory.
package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"signal2html/pkg/models"
	"signal2html/pkg/versioninfo"
)

const (
	DefaultDatabaseFile = "database.sqlite"
	DefaultVersionFile  = "DatabaseVersion.sbf"
)

var (
	ErrDatabaseNotFound   = errors.New("database file not found")
	ErrVersionNotFound    = errors.New("database version file not found")
	ErrAttachmentNotFound = errors.New("attachment file not found")
)

// Backup is a checked backup directory.
type Backup struct {
	Dir          string
	DatabasePath string
	VersionPath  string
}

// Check verifies that the required files exist. Empty file names select the
// defaults.
func Check(dir, databaseFile, versionFile string) (*Backup, error) {
	if databaseFile == "" {
		databaseFile = DefaultDatabaseFile
	}
	if versionFile == "" {
		versionFile = DefaultVersionFile
	}
	b := &Backup{
		Dir:          dir,
		DatabasePath: filepath.Join(dir, databaseFile),
		VersionPath:  filepath.Join(dir, versionFile),
	}
	if !isFile(b.DatabasePath) {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, b.DatabasePath)
	}
	if !isFile(b.VersionPath) {
		return nil, fmt.Errorf("%w: %s", ErrVersionNotFound, b.VersionPath)
	}
	return b, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Version reads and parses the version marker.
func (b *Backup) Version(log zerolog.Logger) (versioninfo.VersionInfo, error) {
	data, err := os.ReadFile(b.VersionPath)
	if err != nil {
		return versioninfo.VersionInfo{}, fmt.Errorf("failed to read version file: %w", err)
	}
	return versioninfo.ParseMarker(string(data), log)
}

// AttachmentName is the blob file name of an attachment.
func AttachmentName(attachmentID, uniqueID int64) string {
	return fmt.Sprintf("Attachment_%d_%d.bin", attachmentID, uniqueID)
}

// FileResolver finds attachment blobs in the backup directory and, when
// OutputDir is set, copies them next to the rendered conversation.
type FileResolver struct {
	BackupDir string
	OutputDir string

	mu     sync.Mutex
	copied map[string]struct{}
}

// ThreadDir is the output directory of a conversation.
func ThreadDir(outputDir string, t *models.Thread) string {
	return filepath.Join(outputDir, t.SaneName())
}

// Resolve returns a link relative to the thread directory, or
// ErrAttachmentNotFound when the blob is missing.
func (r *FileResolver) Resolve(t *models.Thread, attachmentID, uniqueID int64) (string, error) {
	name := AttachmentName(attachmentID, uniqueID)
	src := filepath.Join(r.BackupDir, name)
	if !isFile(src) {
		return "", fmt.Errorf("%w: %s", ErrAttachmentNotFound, name)
	}
	ref := "./attachments/" + name
	if r.OutputDir == "" {
		return ref, nil
	}
	dst := filepath.Join(ThreadDir(r.OutputDir, t), "attachments", name)
	if err := r.copyOnce(src, dst); err != nil {
		return "", err
	}
	return ref, nil
}

func (r *FileResolver) copyOnce(src, dst string) error {
	r.mu.Lock()
	if r.copied == nil {
		r.copied = make(map[string]struct{})
	}
	if _, done := r.copied[dst]; done {
		r.mu.Unlock()
		return nil
	}
	r.copied[dst] = struct{}{}
	r.mu.Unlock()

	if err := copyFile(src, dst); err != nil {
		r.mu.Lock()
		delete(r.copied, dst)
		r.mu.Unlock()
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create attachment directory: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open attachment: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create attachment copy: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy attachment: %w", err)
	}
	return out.Close()
}
