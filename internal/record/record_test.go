package record

import (
	"testing"
	"time"
)

func TestParseTime_Layouts(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2024-06-15", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"2024-06-15T10:30:00Z", time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)},
		{"2024-06-15T10:30:00.250Z", time.Date(2024, 6, 15, 10, 30, 0, 250_000_000, time.UTC)},
		{"2024-06-15T10:30:00", time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseTime(tc.in)
		if err != nil {
			t.Fatalf("ParseTime(%q): %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Errorf("ParseTime(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseTime_Invalid(t *testing.T) {
	if _, err := ParseTime("June 15th"); err == nil {
		t.Fatal("expected error for non-ISO date")
	}
}

func TestDosageDisplay(t *testing.T) {
	cases := []struct {
		d    Dosage
		want string
	}{
		{Dosage{Amount: 20, Unit: "mg"}, "20mg"},
		{Dosage{Amount: 2.5, Unit: "mg"}, "2.5mg"},
		{Dosage{Amount: 1000, Unit: "IU"}, "1000IU"},
	}
	for _, tc := range cases {
		if got := tc.d.Display(); got != tc.want {
			t.Errorf("Display() = %q, want %q", got, tc.want)
		}
	}
}

func TestFormatLabValue(t *testing.T) {
	v := 5.7
	unit := "%"
	text := "Negative"

	if got := FormatLabValue(LabResult{Value: &v, Unit: &unit}); got != "5.7 %" {
		t.Errorf("numeric with unit: got %q", got)
	}
	if got := FormatLabValue(LabResult{Value: &v}); got != "5.7" {
		t.Errorf("numeric without unit: got %q", got)
	}
	if got := FormatLabValue(LabResult{ValueText: &text}); got != "Negative" {
		t.Errorf("categorical: got %q", got)
	}
	if got := FormatLabValue(LabResult{}); got != "" {
		t.Errorf("empty: got %q", got)
	}
}
