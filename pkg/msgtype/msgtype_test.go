package msgtype

import "testing"

func TestNameOf(t *testing.T) {
	cases := []struct {
		code int64
		want Name
	}{
		{BaseInbox, NameIncoming},
		{23, NameOutgoing},
		{0x800000 | 23, NameOutgoing},
		{GroupUpdateBit | BaseInbox, NameGroupUpdateV1},
		{GroupUpdateBit | GroupV2Bit | 23, NameGroupUpdateV2},
		{GV1Migration, NameGroupUpdateV1},
		{KeyExchangeIdentityUpdateBit | BaseInbox, NameKeyUpdate},
		{IncomingAudioCall, NameCallIncoming},
		{IncomingVideoCall, NameVideoCallIncoming},
		{OutgoingAudioCall, NameCallOutgoing},
		{OutgoingVideoCall, NameVideoCallOutgoing},
		{MissedAudioCall, NameCallMissed},
		{MissedVideoCall, NameVideoCallMissed},
		{GroupCall, NameGroupCall},
		{Joined, NameJoined},
		{17, NameUnknown},
	}
	for _, tc := range cases {
		if got := NameOf(tc.code); got != tc.want {
			t.Fatalf("NameOf(%#x) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestPredicates(t *testing.T) {
	if !IsCall(MissedVideoCall) || IsCall(GroupCall) {
		t.Fatalf("IsCall misclassified call kinds")
	}
	if !IsEvent(GroupCall) || IsEvent(BaseInbox) || IsEvent(22) {
		t.Fatalf("IsEvent misclassified records")
	}
	if Base(GroupUpdateBit|GroupV2Bit|22) != 22 {
		t.Fatalf("Base did not strip flags")
	}
}
