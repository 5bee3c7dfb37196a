package util

import "testing"

func TestTruncate(t *testing.T) {
	if got := Truncate("zażółć gęślą", 6); got != "zażółć..." {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("Truncate = %q", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  Alice Smith ", "Alice_Smith"},
		{"..#hidden", "hidden"},
		{"a/b\\c", "a_b_c"},
		{"Family 👪", "Family"},
		{"Ｆｕｌｌｗｉｄｔｈ", "Fullwidth"},
		{"+1 (555) 123", "+1_(555)_123"},
		{"", ""},
	}
	for _, c := range cases {
		if got := SanitizeFilename(c.in); got != c.want {
			t.Fatalf("SanitizeFilename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
