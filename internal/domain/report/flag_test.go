package report

import (
	"math"
	"testing"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		normalRange string
		want        Flag
	}{
		{"below-range over max", "220", "<200", FlagHigh},
		{"above-range over min", "45", ">40", FlagNormal},
		{"below-range under max", "130", "<150", FlagNormal},
		{"below-range at max", "200", "<200", FlagHigh},
		{"below-range never low", "1", "<200", FlagNormal},
		{"above-range at min", "40", ">40", FlagLow},
		{"above-range never high", "4000", ">40", FlagNormal},
		{"between inside", "14.2", "13.5-17.5", FlagNormal},
		{"between at max", "11.0", "4.5-11.0", FlagNormal},
		{"between over max", "11.5", "4.5-11.0", FlagHigh},
		{"between under min", "3", "4.5-11.0", FlagLow},
		{"trailing unit text", "12.5 mg", "10-12", FlagHigh},
		{"leading whitespace", " 7", "5-10", FlagNormal},
		{"negative value", "-5", "0-10", FlagLow},
		{"empty min side", "11", "-10", FlagHigh},
		{"malformed between bounds", "5", "a-b", FlagNormal},
		{"malformed below bound", "5", "<abc", FlagNormal},
		{"qualitative range", "5", "Negative", FlagNormal},
		{"empty value", "", "13.5-17.5", FlagNone},
		{"pending value", "---", "13.5-17.5", FlagNone},
		{"non-numeric value", "Positive", "Negative", FlagNone},
		{"overflowing value", "1e400", "0-10", FlagNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.value, tt.normalRange); got != tt.want {
				t.Errorf("Evaluate(%q, %q) = %q, want %q", tt.value, tt.normalRange, got, tt.want)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	r := ParseRange("4.5-11.0")
	if r.Kind != RangeBetween || r.Min != 4.5 || r.Max != 11 {
		t.Errorf("unexpected between range: %+v", r)
	}

	r = ParseRange("<200")
	if r.Kind != RangeBelow || r.Max != 200 || !math.IsNaN(r.Min) {
		t.Errorf("unexpected below range: %+v", r)
	}

	r = ParseRange(">40")
	if r.Kind != RangeAbove || r.Min != 40 || !math.IsNaN(r.Max) {
		t.Errorf("unexpected above range: %+v", r)
	}

	if r := ParseRange("Negative"); r.Kind != RangeText {
		t.Errorf("expected text range, got %+v", r)
	}
}

func TestParseRange_DashTakesPriority(t *testing.T) {
	r := ParseRange("<-5")
	if r.Kind != RangeBetween {
		t.Fatalf("expected between range, got %v", r.Kind)
	}
	if !math.IsNaN(r.Min) {
		t.Errorf("expected NaN min for %q, got %v", "<", r.Min)
	}
	if r.Max != 5 {
		t.Errorf("expected max 5, got %v", r.Max)
	}
}

func TestIsAbnormal(t *testing.T) {
	for f, want := range map[Flag]bool{FlagHigh: true, FlagLow: true, FlagNormal: false, FlagNone: false} {
		if got := IsAbnormal(f); got != want {
			t.Errorf("IsAbnormal(%q) = %v, want %v", f, got, want)
		}
	}
}
