package dbproto

import "go.mau.fi/util/ptr"

// GroupV1Member is an entry of GroupContext.members.
type GroupV1Member struct {
	UUID  string
	Phone string
}

// GroupContextV1 is the legacy group update carried in a message body.
type GroupContextV1 struct {
	ID          []byte
	Type        int
	Name        *string
	MembersE164 []string
	Members     []GroupV1Member
}

// MergedMember is one deduplicated participant of a v1 group update.
type MergedMember struct {
	Phone string
	UUID  string
	// MatchFromPhone is set when no member reference was available and the
	// participant can only be looked up by phone number.
	MatchFromPhone bool
}

func DecodeGroupV1(b []byte) (*GroupContextV1, error) {
	gc := &GroupContextV1{}
	err := walk(b, func(f field) (err error) {
		var v uint64
		var s string
		var raw []byte
		switch f.num {
		case 1:
			gc.ID, err = f.raw()
		case 2:
			v, err = f.uint()
			gc.Type = int(v)
		case 3:
			s, err = f.str()
			gc.Name = ptr.Ptr(s)
		case 4:
			s, err = f.str()
			gc.MembersE164 = append(gc.MembersE164, s)
		case 6:
			raw, err = f.raw()
			if err != nil {
				return err
			}
			var m GroupV1Member
			m, err = decodeGroupV1Member(raw)
			gc.Members = append(gc.Members, m)
		}
		return err
	})
	if err != nil {
		return nil, malformed("group v1 update", err)
	}
	return gc, nil
}

func decodeGroupV1Member(b []byte) (m GroupV1Member, err error) {
	err = walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.UUID, err = f.str()
		case 2:
			m.Phone, err = f.str()
		}
		return err
	})
	return
}

// MergedMembers combines both member lists into one set keyed by phone.
// Structured members come first in payload order, followed by phones that
// only appear in the plain list.
func (gc *GroupContextV1) MergedMembers() []MergedMember {
	var out []MergedMember
	byPhone := make(map[string]int)
	for _, m := range gc.Members {
		if m.UUID == "" && m.Phone == "" {
			continue
		}
		merged := MergedMember{Phone: m.Phone, UUID: m.UUID, MatchFromPhone: m.UUID == ""}
		if m.Phone != "" {
			if idx, ok := byPhone[m.Phone]; ok {
				if out[idx].UUID == "" && merged.UUID != "" {
					out[idx] = merged
				}
				continue
			}
			byPhone[m.Phone] = len(out)
		}
		out = append(out, merged)
	}
	for _, phone := range gc.MembersE164 {
		if phone == "" {
			continue
		}
		if _, ok := byPhone[phone]; ok {
			continue
		}
		byPhone[phone] = len(out)
		out = append(out, MergedMember{Phone: phone, MatchFromPhone: true})
	}
	return out
}
