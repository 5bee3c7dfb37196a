package dbproto

import (
	"fmt"

	"go.mau.fi/util/ptr"
)

// Member roles in DecryptedMember.role.
const (
	RoleUnknown       = 0
	RoleDefault       = 1
	RoleAdministrator = 2
)

type GroupV2Member struct {
	UUID             string
	Role             int
	JoinedAtRevision uint32
}

func (m GroupV2Member) IsAdmin() bool {
	return m.Role == RoleAdministrator
}

// GroupChangeV2 is a DecryptedGroupChange.
type GroupChangeV2 struct {
	EditorUUID    string
	Revision      uint32
	NewMembers    []GroupV2Member
	DeleteMembers []string
	ModifiedRoles []GroupV2Member
	NewTitle      *string
}

// GroupStateV2 is a DecryptedGroup.
type GroupStateV2 struct {
	Title    string
	Revision uint32
	Members  []GroupV2Member
}

// GroupContextV2 is a DecryptedGroupV2Context: the change applied by this
// message and the group state after it.
type GroupContextV2 struct {
	Change *GroupChangeV2
	State  *GroupStateV2
}

func DecodeGroupV2(b []byte) (*GroupContextV2, error) {
	gc := &GroupContextV2{}
	err := walk(b, func(f field) error {
		switch f.num {
		case 2:
			raw, err := f.raw()
			if err != nil {
				return err
			}
			if gc.Change, err = decodeGroupChangeV2(raw); err != nil {
				return fmt.Errorf("change: %w", err)
			}
		case 3:
			raw, err := f.raw()
			if err != nil {
				return err
			}
			if gc.State, err = decodeGroupStateV2(raw); err != nil {
				return fmt.Errorf("group state: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, malformed("group v2 update", err)
	}
	return gc, nil
}

func decodeGroupChangeV2(b []byte) (*GroupChangeV2, error) {
	ch := &GroupChangeV2{}
	err := walk(b, func(f field) error {
		raw, err := f.raw()
		switch f.num {
		case 1:
			if err != nil {
				return err
			}
			if len(raw) > 0 {
				ch.EditorUUID, err = uuidString(raw)
			}
			return err
		case 2:
			v, err := f.uint()
			ch.Revision = uint32(v)
			return err
		case 3, 5:
			if err != nil {
				return err
			}
			m, err := decodeGroupMemberV2(raw)
			if err != nil {
				return err
			}
			if f.num == 3 {
				ch.NewMembers = append(ch.NewMembers, m)
			} else {
				ch.ModifiedRoles = append(ch.ModifiedRoles, m)
			}
		case 4:
			if err != nil {
				return err
			}
			id, err := uuidString(raw)
			if err != nil {
				return err
			}
			ch.DeleteMembers = append(ch.DeleteMembers, id)
		case 10:
			if err != nil {
				return err
			}
			title, err := decodeDecryptedString(raw)
			if err != nil {
				return err
			}
			ch.NewTitle = ptr.Ptr(title)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func decodeGroupStateV2(b []byte) (*GroupStateV2, error) {
	st := &GroupStateV2{}
	err := walk(b, func(f field) (err error) {
		var v uint64
		var raw []byte
		switch f.num {
		case 2:
			st.Title, err = f.str()
		case 6:
			v, err = f.uint()
			st.Revision = uint32(v)
		case 7:
			if raw, err = f.raw(); err != nil {
				return err
			}
			var m GroupV2Member
			if m, err = decodeGroupMemberV2(raw); err == nil {
				st.Members = append(st.Members, m)
			}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// decodeGroupMemberV2 decodes both DecryptedMember and
// DecryptedModifyMemberRole, which share the uuid and role field numbers.
func decodeGroupMemberV2(b []byte) (m GroupV2Member, err error) {
	err = walk(b, func(f field) (err error) {
		var v uint64
		var raw []byte
		switch f.num {
		case 1:
			if raw, err = f.raw(); err == nil {
				m.UUID, err = uuidString(raw)
			}
		case 2:
			v, err = f.uint()
			m.Role = int(v)
		case 5:
			v, err = f.uint()
			m.JoinedAtRevision = uint32(v)
		}
		return err
	})
	return
}

func decodeDecryptedString(b []byte) (s string, err error) {
	err = walk(b, func(f field) (err error) {
		if f.num == 1 {
			s, err = f.str()
		}
		return err
	})
	return
}
