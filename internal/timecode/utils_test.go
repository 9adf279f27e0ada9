package timecode

import (
	"errors"
	"slices"
	"testing"
)

func TestParse(t *testing.T) {
	valid := map[string]float64{
		"05:11":        311,
		"1:05:11":      3911,
		"10:05:11":     36311,
		"1:5:11":       3911,
		"90:00":        5400,
		" 00:30 ":      30,
		"100000:00:00": 360000000,
	}
	for in, want := range valid {
		got, err := Parse(in)
		if err != nil || got != want {
			t.Errorf("Parse(%q) = %v,%v want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"", "30", "1:2:3:4", "00:60", "1:60:00", "aa:bb", "-1:00", "1::00",
		"9999999999999999:00:00", "9999999999999999:00"} {
		if _, err := Parse(in); !errors.Is(err, ErrInvalidTimecode) {
			t.Errorf("Parse(%q) expected ErrInvalidTimecode, got %v", in, err)
		}
		if Validate(in) {
			t.Errorf("Validate(%q) = true", in)
		}
	}
}

func TestDurationAndRange(t *testing.T) {
	d, err := Duration("05:11", "08:23")
	if err != nil || d != 192 {
		t.Fatalf("Duration = %v,%v want 192", d, err)
	}
	if _, err := Duration("08:23", "05:11"); err == nil {
		t.Fatal("expected error when end precedes start")
	}
	if ok, err := InRange("01:00", 60); !ok || err != nil {
		t.Fatalf("InRange(01:00, 60) = %v,%v want true", ok, err)
	}
	if ok, err := InRange("01:01", 60); ok || err != nil {
		t.Fatalf("InRange(01:01, 60) = %v,%v want false", ok, err)
	}
	if _, err := InRange("bogus", 600); !errors.Is(err, ErrInvalidTimecode) {
		t.Fatalf("InRange(bogus) expected ErrInvalidTimecode, got %v", err)
	}
}

func TestRangesOverlap(t *testing.T) {
	cases := []struct {
		a, b [2]string
		want bool
	}{
		{[2]string{"00:00", "01:00"}, [2]string{"00:30", "02:00"}, true},
		{[2]string{"00:00", "01:00"}, [2]string{"01:00", "02:00"}, false},
		{[2]string{"00:00", "10:00"}, [2]string{"02:00", "03:00"}, true},
	}
	for _, tc := range cases {
		got, err := RangesOverlap(tc.a, tc.b)
		if err != nil || got != tc.want {
			t.Errorf("RangesOverlap(%v, %v) = %v,%v want %v", tc.a, tc.b, got, err, tc.want)
		}
	}
	if _, err := RangesOverlap([2]string{"x", "01:00"}, [2]string{"00:00", "01:00"}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSort(t *testing.T) {
	got, err := Sort([]string{"1:00:00", "05:00", "00:30", "59:59"})
	if err != nil {
		t.Fatalf("Sort: %v", err)
	}
	want := []string{"00:30", "05:00", "59:59", "1:00:00"}
	if !slices.Equal(got, want) {
		t.Fatalf("Sort = %v, want %v", got, want)
	}
	if _, err := Sort([]string{"bad"}); err == nil {
		t.Fatal("expected error for invalid entry")
	}
}

func TestSummarize(t *testing.T) {
	hands := []HandTimecode{
		{HandNumber: 1, StartTime: "00:00:00", EndTime: "00:01:00"},
		{HandNumber: 2, StartTime: "00:01:00", EndTime: "00:04:00"},
	}
	got := Summarize(hands)
	if got.Count != 2 || got.TotalSeconds != 240 || got.AverageSeconds != 120 {
		t.Fatalf("unexpected summary %+v", got)
	}
	if empty := Summarize(nil); empty != (Summary{}) {
		t.Fatalf("expected zero summary, got %+v", empty)
	}
}
