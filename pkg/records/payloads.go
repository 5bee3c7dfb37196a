package records

import (
	"github.com/rs/zerolog"
	"go.mau.fi/util/exslices"

	"signal2html/pkg/dbproto"
	"signal2html/pkg/models"
	"signal2html/pkg/msgtype"
)

// decodeEvent decodes the payload selected by the type code. Failures are
// logged and yield nil.
func (b *Builder) decodeEvent(log zerolog.Logger, rec *models.MessageRecord, stats *Stats) models.EventData {
	body := rec.Text()
	if body == "" {
		return nil
	}
	var kind string
	switch {
	case msgtype.IsGroupCall(rec.Type):
		kind = "group call"
	case msgtype.IsGroupCtrl(rec.Type) && msgtype.IsGroupV2Data(rec.Type):
		kind = "group v2 update"
	case msgtype.IsGroupCtrl(rec.Type):
		kind = "group v1 update"
	default:
		return nil
	}

	data, err := dbproto.DecodeBase64(kind, body)
	var event models.EventData
	if err == nil {
		switch kind {
		case "group call":
			var gc *dbproto.GroupCall
			if gc, err = dbproto.DecodeGroupCall(data); err == nil {
				event = b.groupCall(gc)
			}
		case "group v2 update":
			var gc *dbproto.GroupContextV2
			if gc, err = dbproto.DecodeGroupV2(data); err == nil {
				event = b.groupUpdateV2(gc)
			}
		default:
			var gc *dbproto.GroupContextV1
			if gc, err = dbproto.DecodeGroupV1(data); err == nil {
				event = b.groupUpdateV1(gc)
			}
		}
	}
	if err != nil {
		stats.DegradedPayloads++
		log.Warn().Err(err).Str("message", rec.Key()).Msg("Failed to decode event payload")
		return nil
	}
	return event
}

func (b *Builder) groupCall(gc *dbproto.GroupCall) *models.GroupCallData {
	data := &models.GroupCallData{InitiatorUUID: gc.StartedByUUID, Timestamp: gc.Timestamp}
	if r, ok := b.book.GetRecipientByUUID(gc.StartedByUUID); ok {
		data.InitiatorName = r.DisplayName()
	}
	return data
}

func (b *Builder) groupUpdateV1(gc *dbproto.GroupContextV1) *models.GroupUpdateV1 {
	return &models.GroupUpdateV1{GroupUpdateData: models.GroupUpdateData{
		Name:    gc.Name,
		Members: exslices.CastFunc(gc.MergedMembers(), b.memberV1),
	}}
}

// memberV1 prefers the member reference and falls back to the phone number.
func (b *Builder) memberV1(m dbproto.MergedMember) models.GroupMember {
	if m.UUID != "" {
		if r, ok := b.book.GetRecipientByUUID(m.UUID); ok {
			return models.GroupMember{Name: r.DisplayName()}
		}
	}
	member := models.GroupMember{Name: m.Phone, Phone: m.Phone, MatchFromPhone: true}
	if r, ok := b.book.GetRecipientByPhone(m.Phone); ok && r.DisplayName() != "" {
		member.Name = r.DisplayName()
	}
	return member
}

func (b *Builder) groupUpdateV2(gc *dbproto.GroupContextV2) *models.GroupUpdateV2 {
	data := &models.GroupUpdateV2{}
	if ch := gc.Change; ch != nil {
		data.Revision = ch.Revision
		data.Name = ch.NewTitle
		if ch.EditorUUID != "" {
			editor := b.memberV2(dbproto.GroupV2Member{UUID: ch.EditorUUID})
			data.ChangedBy = &editor
		}
		data.Added = exslices.CastFunc(ch.NewMembers, b.memberV2)
		for _, id := range ch.DeleteMembers {
			data.Removed = append(data.Removed, b.memberV2(dbproto.GroupV2Member{UUID: id}))
		}
	}
	if st := gc.State; st != nil {
		if data.Revision == 0 {
			data.Revision = st.Revision
		}
		data.Members = exslices.CastFunc(st.Members, b.memberV2)
	}
	return data
}

func (b *Builder) memberV2(m dbproto.GroupV2Member) models.GroupMember {
	member := models.GroupMember{IsAdmin: m.IsAdmin()}
	if r, ok := b.book.GetRecipientByUUID(m.UUID); ok {
		member.Name = r.DisplayName()
		member.Phone = r.Phone
	}
	return member
}

func (b *Builder) reactions(log zerolog.Logger, rec *models.MessageRecord, blob []byte, stats *Stats) []models.Reaction {
	if len(blob) == 0 {
		return nil
	}
	list, err := dbproto.DecodeReactions(blob)
	if err != nil {
		stats.DegradedPayloads++
		log.Warn().Err(err).Str("message", rec.Key()).Msg("Failed to decode reactions")
		return nil
	}
	if list.Skipped > 0 {
		log.Warn().Int("skipped", list.Skipped).Str("message", rec.Key()).Msg("Skipped undecodable reactions")
	}
	out := make([]models.Reaction, 0, len(list.Reactions))
	for _, r := range list.Reactions {
		out = append(out, models.Reaction{
			Recipient:    b.book.GetRecipientByAddress(recipientIDString(r.Author)),
			What:         r.Emoji,
			SentTime:     r.SentTime,
			ReceivedTime: r.ReceivedTime,
		})
	}
	stats.Reactions += len(out)
	return out
}

func (b *Builder) quoteMentions(log zerolog.Logger, rec *models.MessageRecord, blob []byte, stats *Stats) map[int]models.Mention {
	if len(blob) == 0 {
		return nil
	}
	list, err := dbproto.DecodeBodyRanges(blob)
	if err != nil {
		stats.DegradedPayloads++
		log.Warn().Err(err).Str("message", rec.Key()).Msg("Failed to decode quote mentions")
		return nil
	}
	mentions := list.Mentions()
	if len(mentions) == 0 {
		return nil
	}
	out := make(map[int]models.Mention, len(mentions))
	for _, m := range mentions {
		name := m.MentionUUID
		if r, ok := b.book.GetRecipientByUUID(m.MentionUUID); ok {
			name = r.DisplayName()
		}
		out[m.Start] = models.Mention{Offset: m.Start, Length: m.Length, Name: name}
	}
	return out
}
