package addressbook

import (
	"strconv"

	"signal2html/pkg/models"
	"signal2html/pkg/signaldb"
)

// Modern resolves addresses that are numeric recipient ids.
type Modern struct {
	*book
}

var _ Addressbook = (*Modern)(nil)

func (ab *Modern) load(rows []signaldb.RecipientRow) {
	for _, row := range rows {
		r := &models.Recipient{
			ID:    strconv.FormatInt(row.ID, 10),
			Color: row.Color.String,
			Phone: row.Phone.String,
			UUID:  row.UUID.String,
		}
		if row.GroupID.Valid {
			r.IsGroup = true
			r.GroupID = row.GroupID.String
			name, ok := ab.groupName(r.GroupID)
			switch {
			case !ok:
				ab.log.Warn().Str("recipient_id", r.ID).Str("group_id", r.GroupID).Msg("Group of recipient does not exist")
			case name != ab.groups[r.GroupID].title:
				ab.log.Info().Str("recipient_id", r.ID).Str("name", name).Msg("Group has no title, naming it by group id")
			}
			r.Name = name
		} else {
			r.Name = firstNonEmpty(row.SystemDisplayName.String, row.ProfileName.String, row.Phone.String)
		}
		ab.add(r)
	}
}

func (ab *Modern) Lookup(address string) (*models.Recipient, bool) {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	return ab.lookup(address)
}

func (ab *Modern) lookup(address string) (*models.Recipient, bool) {
	if r, ok := ab.byID[address]; ok {
		return r, true
	}
	r, ok := ab.byID[ab.synthIdx[address]]
	return r, ok
}

// GetRecipientByAddress registers unknown ids under the id itself so that
// later references resolve to the same recipient.
func (ab *Modern) GetRecipientByAddress(address string) *models.Recipient {
	if r, ok := ab.Lookup(address); ok {
		return r
	}
	ab.mu.Lock()
	defer ab.mu.Unlock()
	if r, ok := ab.lookup(address); ok {
		return r
	}
	id := address
	if id == "" {
		id = ab.mintID()
	}
	ab.log.Warn().Str("recipient_id", id).Msg("Recipient not in addressbook, adding it")
	return ab.synthesized(address, &models.Recipient{ID: id})
}
