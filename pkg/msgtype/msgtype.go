// Package msgtype interprets the packed type code stored on every Signal
// message row. The low five bits hold the base kind, the rest are flags.
package msgtype

import "slices"

const BaseTypeMask = 0x1F

// Base kinds.
const (
	IncomingAudioCall = 1
	OutgoingAudioCall = 2
	MissedAudioCall   = 3
	Joined            = 4
	MissedVideoCall   = 8
	GV1Migration      = 9
	IncomingVideoCall = 10
	OutgoingVideoCall = 11
	GroupCall         = 12
	BaseInbox         = 20
)

// Flags.
const (
	KeyExchangeIdentityUpdateBit = 0x200
	GroupUpdateBit               = 0x10000
	GroupV2Bit                   = 0x80000
)

var outgoingTypes = []int64{21, 23, 22, 24, 25, 26}

// Name is a stable label for a message kind, used in rendered output.
type Name string

const (
	NameGroupUpdateV2     Name = "group-update-v2"
	NameGroupUpdateV1     Name = "group-update-v1"
	NameKeyUpdate         Name = "key-update"
	NameOutgoing          Name = "outgoing"
	NameIncoming          Name = "incoming"
	NameCallIncoming      Name = "call-incoming"
	NameVideoCallIncoming Name = "video-call-incoming"
	NameCallOutgoing      Name = "call-outgoing"
	NameVideoCallOutgoing Name = "video-call-outgoing"
	NameCallMissed        Name = "call-missed"
	NameVideoCallMissed   Name = "video-call-missed"
	NameGroupCall         Name = "group-call"
	NameJoined            Name = "joined"
	NameUnknown           Name = "unknown"
)

func Base(t int64) int64 {
	return t & BaseTypeMask
}

func IsInbox(t int64) bool {
	return Base(t) == BaseInbox
}

func IsOutgoing(t int64) bool {
	return slices.Contains(outgoingTypes, Base(t))
}

func IsGroupCtrl(t int64) bool {
	return t&GroupUpdateBit != 0
}

func IsGroupV2Data(t int64) bool {
	return t&GroupV2Bit != 0
}

func IsKeyUpdate(t int64) bool {
	return t&KeyExchangeIdentityUpdateBit != 0
}

func IsJoined(t int64) bool {
	return Base(t) == Joined
}

func IsGV1Migration(t int64) bool {
	return Base(t) == GV1Migration
}

func IsGroupCall(t int64) bool {
	return Base(t) == GroupCall
}

func IsIncomingCall(t int64) bool {
	b := Base(t)
	return b == IncomingAudioCall || b == IncomingVideoCall
}

func IsOutgoingCall(t int64) bool {
	b := Base(t)
	return b == OutgoingAudioCall || b == OutgoingVideoCall
}

func IsMissedCall(t int64) bool {
	b := Base(t)
	return b == MissedAudioCall || b == MissedVideoCall
}

func IsVideoCall(t int64) bool {
	b := Base(t)
	return b == IncomingVideoCall || b == OutgoingVideoCall || b == MissedVideoCall
}

// IsCall reports whether the record is a one-to-one call event.
func IsCall(t int64) bool {
	return IsIncomingCall(t) || IsOutgoingCall(t) || IsMissedCall(t)
}

// IsEvent reports whether the record describes a system event rather than
// a message typed by a person.
func IsEvent(t int64) bool {
	return IsGroupCtrl(t) || IsGV1Migration(t) || IsKeyUpdate(t) || IsCall(t) || IsGroupCall(t) || IsJoined(t)
}

// NameOf classifies a type code. Group updates take precedence over the
// direction of the message.
func NameOf(t int64) Name {
	switch {
	case IsGroupCtrl(t) && IsGroupV2Data(t):
		return NameGroupUpdateV2
	case IsGroupCtrl(t), IsGV1Migration(t):
		return NameGroupUpdateV1
	case IsKeyUpdate(t):
		return NameKeyUpdate
	case IsOutgoing(t):
		return NameOutgoing
	case IsInbox(t):
		return NameIncoming
	case IsIncomingCall(t):
		if IsVideoCall(t) {
			return NameVideoCallIncoming
		}
		return NameCallIncoming
	case IsOutgoingCall(t):
		if IsVideoCall(t) {
			return NameVideoCallOutgoing
		}
		return NameCallOutgoing
	case IsMissedCall(t):
		if IsVideoCall(t) {
			return NameVideoCallMissed
		}
		return NameCallMissed
	case IsGroupCall(t):
		return NameGroupCall
	case IsJoined(t):
		return NameJoined
	default:
		return NameUnknown
	}
}
