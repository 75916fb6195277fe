package report

import (
	"bytes"
	"encoding/json"
	"slices"
	"strconv"
)

// Shape identifies the schema generation of a stored record.
type Shape int

const (
	// ShapeUnknown is neither current nor legacy: corrupt or foreign data.
	ShapeUnknown Shape = iota
	// ShapeCurrent carries a "tests" array.
	ShapeCurrent
	// ShapeLegacy predates multi-test reports and holds a single
	// testType/testResults pair.
	ShapeLegacy
)

func (s Shape) String() string {
	switch s {
	case ShapeCurrent:
		return "current"
	case ShapeLegacy:
		return "legacy"
	}
	return "unknown"
}

// SniffShape inspects the top-level fields of a stored record.
func SniffShape(fields map[string]json.RawMessage) Shape {
	if isArray(fields["tests"]) {
		return ShapeCurrent
	}
	if truthy(fields["testType"]) && truthy(fields["testResults"]) {
		return ShapeLegacy
	}
	return ShapeUnknown
}

// Migrate normalises a stored record of any shape into the current Report
// shape. It never fails: a record that is not a JSON object becomes an
// empty report with no tests. Fields it does not model are kept in Extra.
// Migrate is idempotent once the result is re-encoded.
func Migrate(raw json.RawMessage) Report {
	r, _ := migrate(raw)
	return r
}

// MigrateAll migrates every record, preserving order.
func MigrateAll(records []json.RawMessage) []Report {
	out := make([]Report, 0, len(records))
	for _, raw := range records {
		out = append(out, Migrate(raw))
	}
	return out
}

func migrate(raw json.RawMessage) (Report, Shape) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Report{Tests: []TestGroup{}}, ShapeUnknown
	}

	r := decodeFields(fields)
	shape := SniffShape(fields)
	switch shape {
	case ShapeCurrent:
		if r.Tests == nil {
			r.Tests = []TestGroup{}
		}
	case ShapeLegacy:
		price := numberOrZero(fields["price"])
		results := []TestResult{}
		if raw := fields["testResults"]; isArray(raw) {
			results = decodeList(raw, decodeResult)
		}
		r.Tests = []TestGroup{{
			ID:          "TG-" + newID(),
			TestType:    text(fields["testType"]),
			Price:       price,
			TestResults: results,
		}}
		r.TotalPrice = price
	default:
		r.Tests = []TestGroup{}
		r.TotalPrice = 0
	}
	return r, shape
}

// decodeFields decodes the modelled fields one at a time so that a single
// badly typed field does not void the whole record. See decodeInto for what
// happens to values the model cannot hold.
func decodeFields(fields map[string]json.RawMessage) Report {
	var r Report
	rest := make(map[string]json.RawMessage, len(fields))
	for key, raw := range fields {
		switch key {
		case "patient":
			if patient, ok := object(raw); ok {
				r.Patient = decodePatient(patient)
				continue
			}
		case "tests":
			// A tests value that is not an array makes the record unknown,
			// which always reads as a report with no tests.
			if isArray(raw) {
				r.Tests = decodeList(raw, decodeGroup)
			}
			continue
		}
		rest[key] = raw
	}
	r.Extra = decodeInto(rest, map[string]any{
		"id":          &r.ID,
		"date":        &r.Date,
		"status":      &r.Status,
		"collectedBy": &r.CollectedBy,
		"verifiedBy":  &r.VerifiedBy,
		"totalPrice":  &r.TotalPrice,
		"createdAt":   &r.CreatedAt,
	}, "totalPrice")
	return r
}

func decodePatient(fields map[string]json.RawMessage) Patient {
	var p Patient
	p.Extra = decodeInto(fields, map[string]any{
		"id":        &p.ID,
		"patientId": &p.PatientID,
		"name":      &p.Name,
		"age":       &p.Age,
		"gender":    &p.Gender,
		"phone":     &p.Phone,
	})
	return p
}

func decodeGroup(fields map[string]json.RawMessage) TestGroup {
	var g TestGroup
	rest := make(map[string]json.RawMessage, len(fields))
	for key, raw := range fields {
		if key == "testResults" && isArray(raw) {
			g.TestResults = decodeList(raw, decodeResult)
			continue
		}
		rest[key] = raw
	}
	if g.TestResults == nil {
		g.TestResults = []TestResult{}
	}
	g.Extra = decodeInto(rest, map[string]any{
		"id":       &g.ID,
		"testType": &g.TestType,
		"price":    &g.Price,
	})
	return g
}

func decodeResult(fields map[string]json.RawMessage) TestResult {
	var tr TestResult
	tr.Extra = decodeInto(fields, map[string]any{
		"id":          &tr.ID,
		"testName":    &tr.TestName,
		"value":       &tr.Value,
		"unit":        &tr.Unit,
		"normalRange": &tr.NormalRange,
		"isAbnormal":  &tr.IsAbnormal,
		"flag":        &tr.Flag,
	})
	return tr
}

// decodeList decodes the object elements of a JSON array. Elements that are
// not objects cannot be represented and are skipped.
func decodeList[T any](raw json.RawMessage, decode func(map[string]json.RawMessage) T) []T {
	out := []T{}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}
	for _, item := range items {
		if fields, ok := object(item); ok {
			out = append(out, decode(fields))
		}
	}
	return out
}

// decodeInto decodes each key of fields into its target and returns what it
// could not place: keys with no target, and keys whose value is null or does
// not fit the target's type. Those come back compacted so they can be written
// back unchanged by marshalWithExtra. Derived keys are recomputed by the
// engine and are never kept.
func decodeInto(fields map[string]json.RawMessage, targets map[string]any, derived ...string) map[string]json.RawMessage {
	var extra map[string]json.RawMessage
	for key, raw := range fields {
		if target, known := targets[key]; known {
			if !isNull(raw) && json.Unmarshal(raw, target) == nil {
				continue
			}
			if slices.Contains(derived, key) {
				continue
			}
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[key] = compact(raw)
	}
	return extra
}

func compact(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

func object(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// truthy mirrors the loose truth test older clients applied to legacy
// fields: absent, null, false, zero and the empty string are false.
func truthy(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "false", `""`:
		return false
	}
	if f, err := strconv.ParseFloat(string(trimmed), 64); err == nil {
		return f != 0
	}
	return true
}

func numberOrZero(raw json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}
	return f
}

// text returns a JSON string's value, or the raw JSON text of anything else.
func text(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
