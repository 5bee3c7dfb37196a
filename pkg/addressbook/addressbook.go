// Package addressbook resolves the recipient references found in message
// rows. Schemas before version 24 reference recipients by phone number or
// group string, later ones by numeric recipient id; both share the
// Addressbook interface.
package addressbook

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"signal2html/pkg/colors"
	"signal2html/pkg/models"
	"signal2html/pkg/signaldb"
	"signal2html/pkg/versioninfo"
)

// firstSynthesizedID is the lowest id handed to recipients missing from the
// recipient table.
const firstSynthesizedID = 10000

// Addressbook is safe for concurrent use.
type Addressbook interface {
	// GetRecipientByAddress resolves a message row's address, registering a
	// new recipient when none is known. It never fails.
	GetRecipientByAddress(address string) *models.Recipient
	// Lookup resolves an address without registering anything.
	Lookup(address string) (*models.Recipient, bool)
	GetRecipientByPhone(phone string) (*models.Recipient, bool)
	GetRecipientByUUID(uuid string) (*models.Recipient, bool)
	GetGroupTitle(groupID string) (string, bool)
	// GetGroupMembers returns the member addresses stored for a group.
	GetGroupMembers(groupID string) []string
	Recipients() []*models.Recipient
}

// Source is the part of the backup database the addressbook is built from.
type Source interface {
	Groups(ctx context.Context) ([]signaldb.GroupRow, error)
	LegacyRecipients(ctx context.Context) ([]signaldb.LegacyRecipientRow, error)
	Recipients(ctx context.Context) ([]signaldb.RecipientRow, error)
}

// Load builds the addressbook variant matching the schema version.
func Load(ctx context.Context, src Source, vi versioninfo.VersionInfo, palette colors.Source, log zerolog.Logger) (Addressbook, error) {
	b := newBook(palette, log.With().Str("component", "addressbook").Logger())
	groups, err := src.Groups(ctx)
	if err != nil {
		return nil, err
	}
	b.loadGroups(groups)

	if vi.IsAddressbookUsingRIDs() {
		rows, err := src.Recipients(ctx)
		if err != nil {
			return nil, err
		}
		ab := &Modern{book: b}
		ab.load(rows)
		return ab, nil
	}
	rows, err := src.LegacyRecipients(ctx)
	if err != nil {
		return nil, err
	}
	ab := &Legacy{book: b}
	ab.load(rows)
	return ab, nil
}

type group struct {
	id      int64
	title   string
	titled  bool
	members []string
}

// book holds the indices shared by both variants.
type book struct {
	mu       sync.RWMutex
	log      zerolog.Logger
	palette  colors.Source
	byID     map[string]*models.Recipient
	order    []string
	phoneIdx map[string]string
	uuidIdx  map[string]string
	groupIdx map[string]string
	// synthIdx maps addresses that no other index can hold to the
	// recipient synthesized for them.
	synthIdx map[string]string
	groups   map[string]group
	nextRID  int
}

func newBook(palette colors.Source, log zerolog.Logger) *book {
	if palette == nil {
		palette = colors.NewRandomSource(0)
	}
	return &book{
		log:      log,
		palette:  palette,
		byID:     make(map[string]*models.Recipient),
		phoneIdx: make(map[string]string),
		uuidIdx:  make(map[string]string),
		groupIdx: make(map[string]string),
		synthIdx: make(map[string]string),
		groups:   make(map[string]group),
		nextRID:  firstSynthesizedID,
	}
}

func (b *book) loadGroups(rows []signaldb.GroupRow) {
	for _, row := range rows {
		g := group{id: row.ID, title: row.Title.String, titled: row.Title.Valid}
		if row.Members.Valid {
			for _, m := range strings.Split(row.Members.String, ",") {
				if m = strings.TrimSpace(m); m != "" {
					g.members = append(g.members, m)
				}
			}
		}
		b.groups[row.GroupID] = g
	}
}

// add registers r. Phone, UUID and group indices are last-write-wins.
// Callers must hold the write lock or be in the load phase.
func (b *book) add(r *models.Recipient) *models.Recipient {
	if r.Color == "" {
		r.Color = b.palette.Pick()
	}
	if _, exists := b.byID[r.ID]; !exists {
		b.order = append(b.order, r.ID)
	}
	b.byID[r.ID] = r
	if r.Phone != "" {
		b.phoneIdx[r.Phone] = r.ID
	}
	if r.UUID != "" {
		b.uuidIdx[strings.ToLower(r.UUID)] = r.ID
	}
	if r.GroupID != "" {
		b.groupIdx[r.GroupID] = r.ID
	}
	b.log.Debug().Str("recipient_id", r.ID).Str("phone", r.Phone).Msg("Added recipient")
	return r
}

// synthesized registers r as the recipient of address for later lookups.
// Callers must hold the write lock.
func (b *book) synthesized(address string, r *models.Recipient) *models.Recipient {
	b.add(r)
	b.synthIdx[address] = r.ID
	return r
}

// mintID returns the lowest unused synthetic id.
func (b *book) mintID() string {
	for {
		id := strconv.Itoa(b.nextRID)
		if _, taken := b.byID[id]; !taken {
			return id
		}
		b.nextRID++
	}
}

// groupName returns the title of a group, or "Group N" built from the
// groups table row id when it has none.
func (b *book) groupName(groupID string) (string, bool) {
	g, ok := b.groups[groupID]
	if !ok {
		return "", false
	}
	if g.titled && g.title != "" {
		return g.title, true
	}
	return fmt.Sprintf("Group %d", g.id), true
}

func (b *book) GetRecipientByPhone(phone string) (*models.Recipient, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.byID[b.phoneIdx[phone]]
	return r, ok
}

func (b *book) GetRecipientByUUID(uuid string) (*models.Recipient, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.byID[b.uuidIdx[strings.ToLower(uuid)]]
	return r, ok
}

func (b *book) GetGroupTitle(groupID string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	g, ok := b.groups[groupID]
	if !ok || !g.titled {
		return "", false
	}
	return g.title, true
}

func (b *book) GetGroupMembers(groupID string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.groups[groupID].members
}

func (b *book) Recipients() []*models.Recipient {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*models.Recipient, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.byID[id])
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
