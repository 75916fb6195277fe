package report

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// PendingValue marks a result that has not been collected yet.
const PendingValue = "---"

// RangeKind is the textual encoding of a reference range.
type RangeKind int

const (
	// RangeText is a qualitative range such as "Negative"; it never flags.
	RangeText RangeKind = iota
	// RangeBetween is "<min>-<max>".
	RangeBetween
	// RangeBelow is "<max".
	RangeBelow
	// RangeAbove is ">min".
	RangeAbove
)

// Range is a parsed reference range. Bounds that are absent or failed to
// parse are NaN.
type Range struct {
	Kind RangeKind
	Min  float64
	Max  float64
}

var leadingNumberRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// leadingNumber parses the numeric prefix of s, ignoring leading whitespace
// and any trailing text ("12.5 mg" is 12.5). It returns NaN when s does not
// start with a number.
func leadingNumber(s string) float64 {
	m := leadingNumberRe.FindString(strings.TrimLeft(s, " \t\r\n"))
	if m == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// strictNumber parses the whole of s as a number. An empty or blank string
// is zero; anything else that is not a number is NaN.
func strictNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// ParseRange classifies a reference range string. A range containing "-" is
// always a between-range, even when it also starts with "<" or ">".
func ParseRange(s string) Range {
	nan := math.NaN()
	switch {
	case strings.Contains(s, "-"):
		parts := strings.Split(s, "-")
		return Range{Kind: RangeBetween, Min: strictNumber(parts[0]), Max: strictNumber(parts[1])}
	case strings.HasPrefix(s, "<"):
		return Range{Kind: RangeBelow, Min: nan, Max: leadingNumber(s[1:])}
	case strings.HasPrefix(s, ">"):
		return Range{Kind: RangeAbove, Min: leadingNumber(s[1:]), Max: nan}
	}
	return Range{Kind: RangeText, Min: nan, Max: nan}
}

// Classify flags v against the range. A bound that is NaN takes part in no
// comparison, so a malformed range classifies every value as normal. An
// upper-bound-only range never reports low and a lower-bound-only range
// never reports high.
func (r Range) Classify(v float64) Flag {
	switch r.Kind {
	case RangeBetween:
		if !math.IsNaN(r.Max) && v > r.Max {
			return FlagHigh
		}
		if !math.IsNaN(r.Min) && v < r.Min {
			return FlagLow
		}
	case RangeBelow:
		if !math.IsNaN(r.Max) && v >= r.Max {
			return FlagHigh
		}
	case RangeAbove:
		if !math.IsNaN(r.Min) && v <= r.Min {
			return FlagLow
		}
	}
	return FlagNormal
}

// Evaluate classifies a raw operator-entered value against a reference
// range. Empty, pending and non-numeric values yield FlagNone.
func Evaluate(value, normalRange string) Flag {
	if value == "" || value == PendingValue {
		return FlagNone
	}
	v := leadingNumber(value)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return FlagNone
	}
	return ParseRange(normalRange).Classify(v)
}

// IsAbnormal reports whether f is a defined, non-normal flag.
func IsAbnormal(f Flag) bool {
	return f != FlagNone && f != FlagNormal
}
