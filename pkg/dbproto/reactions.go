package dbproto

import "errors"

// Reaction is one entry of a ReactionList.
type Reaction struct {
	Emoji        string
	Author       uint64
	SentTime     int64
	ReceivedTime int64
}

// ReactionList is the decoded form of the mms "reactions" blob.
type ReactionList struct {
	Reactions []Reaction
	// Skipped counts entries that could not be decoded.
	Skipped int
}

// DecodeReactions decodes a serialized ReactionList. A broken entry is
// counted in Skipped and does not stop the remaining entries; a broken
// list framing fails the whole payload.
func DecodeReactions(b []byte) (*ReactionList, error) {
	list := &ReactionList{}
	err := walk(b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		entry, err := f.raw()
		if err != nil {
			return err
		}
		r, err := decodeReaction(entry)
		if err != nil {
			list.Skipped++
			return nil
		}
		list.Reactions = append(list.Reactions, r)
		return nil
	})
	if err != nil {
		return nil, malformed("reaction list", err)
	}
	return list, nil
}

var errNoEmoji = errors.New("reaction without emoji")

func decodeReaction(b []byte) (r Reaction, err error) {
	err = walk(b, func(f field) (err error) {
		var v uint64
		switch f.num {
		case 1:
			r.Emoji, err = f.str()
		case 2:
			r.Author, err = f.uint()
		case 3:
			v, err = f.uint()
			r.SentTime = int64(v)
		case 4:
			v, err = f.uint()
			r.ReceivedTime = int64(v)
		}
		return err
	})
	if err == nil && r.Emoji == "" {
		err = errNoEmoji
	}
	return
}
