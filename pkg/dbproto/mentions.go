package dbproto

// BodyRange is one entry of a BodyRangeList. Only ranges with a MentionUUID
// are mentions; the others describe text styles.
type BodyRange struct {
	Start       int
	Length      int
	MentionUUID string
	Style       int
}

// BodyRangeList is the decoded form of a mention blob.
type BodyRangeList struct {
	Ranges  []BodyRange
	Skipped int
}

// Mentions returns only the ranges that reference a member.
func (l *BodyRangeList) Mentions() []BodyRange {
	var out []BodyRange
	for _, r := range l.Ranges {
		if r.MentionUUID != "" {
			out = append(out, r)
		}
	}
	return out
}

// DecodeBodyRanges decodes a serialized BodyRangeList with the same
// per-entry tolerance as DecodeReactions.
func DecodeBodyRanges(b []byte) (*BodyRangeList, error) {
	list := &BodyRangeList{}
	err := walk(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		entry, err := f.raw()
		if err != nil {
			return err
		}
		r, err := decodeBodyRange(entry)
		if err != nil {
			list.Skipped++
			return nil
		}
		list.Ranges = append(list.Ranges, r)
		return nil
	})
	if err != nil {
		return nil, malformed("mention list", err)
	}
	return list, nil
}

func decodeBodyRange(b []byte) (r BodyRange, err error) {
	err = walk(b, func(f field) (err error) {
		var v uint64
		switch f.num {
		case 1:
			v, err = f.uint()
			r.Start = int(int32(v))
		case 2:
			v, err = f.uint()
			r.Length = int(int32(v))
		case 3:
			r.MentionUUID, err = f.str()
		case 4:
			v, err = f.uint()
			r.Style = int(v)
		}
		return err
	})
	return
}
