package ordernum

import "testing"

func TestValid_TableTests(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "regular number", in: "ORD-2026-000042", want: true},
		{name: "max sequence", in: "ORD-2026-999999", want: true},
		{name: "missing prefix", in: "2026-000042", want: false},
		{name: "lowercase prefix", in: "ord-2026-000042", want: false},
		{name: "short sequence", in: "ORD-2026-42", want: false},
		{name: "long sequence", in: "ORD-2026-0000042", want: false},
		{name: "two digit year", in: "ORD-26-000042", want: false},
		{name: "trailing garbage", in: "ORD-2026-000042x", want: false},
		{name: "empty", in: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.in); got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	year, seq, err := Parse("ORD-2026-000042")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if year != 2026 {
		t.Errorf("year = %d, want 2026", year)
	}
	if seq != 42 {
		t.Errorf("seq = %d, want 42", seq)
	}

	if _, _, err := Parse("not-a-number"); err == nil {
		t.Error("Parse should fail on malformed input")
	}
}
