package pipeline

import "testing"

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		in   *string
		want *string
	}{
		{nil, nil},
		{strptr(""), nil},
		{strptr("  "), nil},
		{strptr("2024-01-15"), strptr("2024-01-15")},
		{strptr("15.01.2024"), strptr("2024-01-15")},
		{strptr("15/01/2024"), strptr("2024-01-15")},
		{strptr("2024/01/15"), strptr("2024-01-15")},
		{strptr("2024.01.15"), strptr("2024-01-15")},
		{strptr(" 15.01.2024 "), strptr("2024-01-15")},
		// Unparseable values pass through untouched for a human to fix.
		{strptr("mid January"), strptr("mid January")},
	}
	for _, tc := range cases {
		got := normalizeDate(tc.in)
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("normalizeDate(%v): expected nil, got %q", tc.in, *got)
		case tc.want != nil && got == nil:
			t.Errorf("normalizeDate(%q): expected %q, got nil", *tc.in, *tc.want)
		case tc.want != nil && *got != *tc.want:
			t.Errorf("normalizeDate(%q): expected %q, got %q", *tc.in, *tc.want, *got)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{1200, "1200.00"},
		{1200.5, "1200.50"},
		{1234.567, "1234.57"},
		{-42.1, "-42.10"},
	}
	for _, tc := range cases {
		if got := formatAmount(tc.in); got != tc.want {
			t.Errorf("formatAmount(%v): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestClampConfidence(t *testing.T) {
	if got := clampConfidence(-0.2); got != 0 {
		t.Errorf("expected 0, got %f", got)
	}
	if got := clampConfidence(1.7); got != 1 {
		t.Errorf("expected 1, got %f", got)
	}
	if got := clampConfidence(0.93); got != 0.93 {
		t.Errorf("expected passthrough, got %f", got)
	}
}
