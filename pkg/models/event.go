package models

// EventData is the decoded payload of a system event. A nil EventData means
// the record carries none.
type EventData interface {
	eventData()
}

type GroupCallData struct {
	InitiatorName string
	InitiatorUUID string
	Timestamp     int64
}

type GroupMember struct {
	Name           string
	Phone          string
	MatchFromPhone bool
	IsAdmin        bool
}

// GroupUpdateData is shared by both group update encodings.
type GroupUpdateData struct {
	Name      *string
	ChangedBy *GroupMember
	Added     []GroupMember
	Removed   []GroupMember
	Members   []GroupMember
}

type GroupUpdateV1 struct {
	GroupUpdateData
}

type GroupUpdateV2 struct {
	GroupUpdateData
	Revision uint32
}

func (*GroupCallData) eventData() {}
func (*GroupUpdateV1) eventData() {}
func (*GroupUpdateV2) eventData() {}
