package phone

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"+15551234567", "+15551234567"},
		{"15551234567", "+15551234567"},
		{"  15551234567  ", "+15551234567"},
		{" +15551234567", "+15551234567"},
		{"00441234", "+00441234"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
