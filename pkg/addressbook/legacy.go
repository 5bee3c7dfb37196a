package addressbook

import (
	"strconv"
	"strings"

	"signal2html/pkg/models"
	"signal2html/pkg/signaldb"
)

var legacyGroupPrefixes = []string{"__textsecure_group__", "__signal_mms_group__"}

// IsLegacyGroupAddress reports whether a legacy address names a group.
func IsLegacyGroupAddress(address string) bool {
	for _, prefix := range legacyGroupPrefixes {
		if strings.HasPrefix(address, prefix) {
			return true
		}
	}
	return false
}

// Legacy resolves addresses that are phone numbers or group strings.
type Legacy struct {
	*book
}

var _ Addressbook = (*Legacy)(nil)

func (ab *Legacy) load(rows []signaldb.LegacyRecipientRow) {
	for _, row := range rows {
		r := &models.Recipient{
			ID:    strconv.FormatInt(row.ID, 10),
			Color: row.Color.String,
		}
		if IsLegacyGroupAddress(row.Address) {
			r.IsGroup = true
			r.GroupID = row.Address
			name, ok := ab.groupName(row.Address)
			if !ok || name != ab.groups[row.Address].title {
				ab.log.Warn().Str("recipient_id", r.ID).Str("name", name).Msg("Group has no title, using fallback name")
			}
			r.Name = name
		} else {
			r.Phone = row.Address
			r.Name = firstNonEmpty(row.SystemDisplayName.String, row.ProfileName.String, row.Address)
		}
		ab.add(r)
	}
}

func (ab *Legacy) Lookup(address string) (*models.Recipient, bool) {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	return ab.lookup(address)
}

func (ab *Legacy) lookup(address string) (*models.Recipient, bool) {
	idx := ab.phoneIdx
	if IsLegacyGroupAddress(address) {
		idx = ab.groupIdx
	}
	if r, ok := ab.byID[idx[address]]; ok {
		return r, true
	}
	r, ok := ab.byID[ab.synthIdx[address]]
	return r, ok
}

func (ab *Legacy) GetRecipientByAddress(address string) *models.Recipient {
	if r, ok := ab.Lookup(address); ok {
		return r
	}
	ab.mu.Lock()
	defer ab.mu.Unlock()
	if r, ok := ab.lookup(address); ok {
		return r
	}

	r := &models.Recipient{ID: ab.mintID()}
	if IsLegacyGroupAddress(address) {
		r.IsGroup = true
		r.GroupID = address
		name, ok := ab.groupName(address)
		r.Name = name
		if ok {
			ab.log.Info().Str("group_id", address).Str("name", name).Msg("Group not in addressbook, adding it")
		} else {
			ab.log.Warn().Str("group_id", address).Str("recipient_id", r.ID).Msg("Group not in addressbook, adding it with new id")
		}
	} else {
		r.Name = address
		r.Phone = address
		ab.log.Info().Str("phone", address).Str("recipient_id", r.ID).Msg("Recipient not in addressbook, adding it")
	}
	return ab.synthesized(address, r)
}
