package records

import (
	"context"

	"github.com/rs/zerolog"

	"signal2html/pkg/models"
)

// attachAll loads the parts of a multi-part message and resolves their
// files. A missing file keeps the attachment with an empty reference.
func (b *Builder) attachAll(ctx context.Context, log zerolog.Logger, t *models.Thread, rec *models.MessageRecord, stats *Stats) error {
	parts, err := b.db.Parts(ctx, rec.ID)
	if err != nil {
		return err
	}
	for _, p := range parts {
		a := models.Attachment{
			ID:          p.ID,
			UniqueID:    p.UniqueID.Int64,
			ContentType: p.ContentType.String,
			VoiceNote:   p.VoiceNote.Bool,
			Width:       int(p.Width.Int64),
			Height:      int(p.Height.Int64),
			Quote:       p.Quote.Bool,
		}
		if b.files != nil {
			ref, err := b.files.Resolve(t, a.ID, a.UniqueID)
			if err != nil {
				stats.MissingAttachments++
				log.Warn().Err(err).Int64("attachment_id", a.ID).Str("message", rec.Key()).Msg("Attachment file unavailable")
			} else {
				a.FileRef = ref
			}
		}
		rec.Attachments = append(rec.Attachments, a)
	}
	stats.Attachments += len(parts)
	return nil
}
