package timefmt

import "testing"

func TestParseSeconds(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{in: "90", want: 90, wantOK: true},
		{in: "1:30", want: 90, wantOK: true},
		{in: "01:30", want: 90, wantOK: true},
		{in: "1:01:30", want: 3690, wantOK: true},
		{in: " 0:10 ", want: 10, wantOK: true},
		{in: "0", want: 0, wantOK: true},
		{in: "", wantOK: false},
		{in: "   ", wantOK: false},
		{in: "abc", wantOK: false},
		{in: "1:xx", wantOK: false},
		{in: "1:2:3:4", wantOK: false},
		{in: "-5", wantOK: false},
		{in: "1:", wantOK: false},
		{in: "2147483647", want: 2147483647, wantOK: true},
		{in: "2147483648", wantOK: false},
		{in: "9223372036854775807:0", wantOK: false},
		{in: "35791394:8", wantOK: false},
		{in: "99999999999999999999", wantOK: false},
	}
	for _, tt := range tests {
		got, ok := ParseSeconds(tt.in)
		if ok != tt.wantOK {
			t.Fatalf("ParseSeconds(%q) ok=%v, want %v", tt.in, ok, tt.wantOK)
		}
		if ok && got != tt.want {
			t.Fatalf("ParseSeconds(%q)=%d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseOptional(t *testing.T) {
	if got := ParseOptional(""); got != nil {
		t.Fatalf("ParseOptional(\"\")=%v, want nil", *got)
	}
	got := ParseOptional("0:40")
	if got == nil || *got != 40 {
		t.Fatalf("ParseOptional(\"0:40\")=%v, want 40", got)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{in: 0, want: "0:00"},
		{in: 9, want: "0:09"},
		{in: 65, want: "1:05"},
		{in: 90, want: "1:30"},
		{in: 3600, want: "1:00:00"},
		{in: 3690, want: "1:01:30"},
		{in: -3, want: "0:00"},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Fatalf("Format(%d)=%q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for n := 0; n < 4*3600; n += 7 {
		got, ok := ParseSeconds(Format(n))
		if !ok || got != n {
			t.Fatalf("round trip %d -> %q -> %d (ok=%v)", n, Format(n), got, ok)
		}
	}
}
