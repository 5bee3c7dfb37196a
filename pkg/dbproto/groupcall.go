package dbproto

// GroupCall is the decoded GroupCallUpdateDetails stored in the body of a
// group call record.
type GroupCall struct {
	EraID         string
	StartedByUUID string
	Timestamp     int64
	InCallUUIDs   []string
	IsCallFull    bool
}

func DecodeGroupCall(b []byte) (*GroupCall, error) {
	gc := &GroupCall{}
	err := walk(b, func(f field) (err error) {
		var v uint64
		var s string
		switch f.num {
		case 1:
			gc.EraID, err = f.str()
		case 2:
			gc.StartedByUUID, err = f.str()
		case 3:
			v, err = f.uint()
			gc.Timestamp = int64(v)
		case 4:
			s, err = f.str()
			gc.InCallUUIDs = append(gc.InCallUUIDs, s)
		case 5:
			v, err = f.uint()
			gc.IsCallFull = v != 0
		}
		return err
	})
	if err != nil {
		return nil, malformed("group call", err)
	}
	return gc, nil
}
