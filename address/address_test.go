package address

import "testing"

func TestRoundTrip(t *testing.T) {
	a, err := New("127.0.0.1", "9000", 3)
	if err != nil {
		t.Fatal(err)
	}
	s := a.String()
	b, err := Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("round trip mismatch: %v != %v", a, b)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{"", "host", "host:service", "host:service:notanumber", "host:service:1:extra"}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Fatalf("Parse(%q) should have failed", c)
		}
	}
}

func TestNewRejectsNegativeID(t *testing.T) {
	if _, err := New("h", "s", -1); err == nil {
		t.Fatal("expected error for negative endpoint id")
	}
}

func TestLessIsLexicographic(t *testing.T) {
	a, _ := New("a", "1", 0)
	b, _ := New("b", "1", 0)
	if !a.Less(b) {
		t.Fatal("expected a < b")
	}
	if b.Less(a) {
		t.Fatal("expected !(b < a)")
	}
	if a.Less(a) {
		t.Fatal("expected !(a < a)")
	}
}
