package report

import (
	"bytes"
	"encoding/json"
)

// Status is the workflow state of a report.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Valid reports whether s is one of the known report statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Flag classifies a single result against its reference range. FlagNone
// means the result could not be evaluated (pending or non-numeric).
type Flag string

const (
	FlagNone   Flag = ""
	FlagHigh   Flag = "high"
	FlagLow    Flag = "low"
	FlagNormal Flag = "normal"
)

// Patient is the per-report patient snapshot. Reports do not share patients.
type Patient struct {
	ID        string `json:"id"`
	PatientID string `json:"patientId"`
	Name      string `json:"name"`
	Age       int    `json:"age"`
	Gender    Gender `json:"gender"`
	Phone     string `json:"phone"`

	Extra map[string]json.RawMessage `json:"-"`
}

type TestResult struct {
	ID          string `json:"id"`
	TestName    string `json:"testName"`
	Value       string `json:"value"`
	Unit        string `json:"unit"`
	NormalRange string `json:"normalRange"`
	IsAbnormal  bool   `json:"isAbnormal"`
	Flag        Flag   `json:"flag,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// TestGroup is one instantiated template attached to a report. TestType and
// Price are copied from the template when the group is built.
type TestGroup struct {
	ID          string       `json:"id"`
	TestType    string       `json:"testType"`
	Price       float64      `json:"price"`
	TestResults []TestResult `json:"testResults"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Report is the aggregate root persisted in the report collection.
type Report struct {
	ID          string      `json:"id"`
	Patient     Patient     `json:"patient"`
	Tests       []TestGroup `json:"tests"`
	Date        string      `json:"date"`
	Status      Status      `json:"status"`
	CollectedBy string      `json:"collectedBy"`
	VerifiedBy  string      `json:"verifiedBy,omitempty"`
	TotalPrice  float64     `json:"totalPrice"`
	CreatedAt   string      `json:"createdAt,omitempty"`

	// Extra carries top-level fields this schema does not model, such as the
	// testType/testResults/price triple of legacy records, and modelled
	// fields whose stored value has the wrong type. They are written back
	// verbatim so older consumers keep working.
	Extra map[string]json.RawMessage `json:"-"`
}

// The *Fields types have the same layout as their namesakes without the
// JSON methods.
type (
	reportFields  Report
	patientFields Patient
	groupFields   TestGroup
	resultFields  TestResult
)

func (r Report) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(reportFields(r), r.Extra)
}

func (p Patient) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(patientFields(p), p.Extra)
}

func (g TestGroup) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(groupFields(g), g.Extra)
}

func (tr TestResult) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(resultFields(tr), tr.Extra)
}

// marshalWithExtra encodes known and folds extra into the resulting object.
// An extra key is written when known lacks it or holds only a zero value
// there, so a preserved value is not shadowed by the empty field it failed
// to decode into.
func marshalWithExtra(known any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := encodeJSON(known)
	if err != nil || len(extra) == 0 {
		return data, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range extra {
		if cur, ok := merged[k]; !ok || isZeroJSON(cur) {
			merged[k] = v
		}
	}
	return encodeJSON(merged)
}

// isZeroJSON reports whether raw is the encoding of a Go zero value: an
// empty string, zero, false, null, an empty array, or an object whose
// members are all zero.
func isZeroJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case `""`, "0", "false", "null", "[]", "{}":
		return true
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &members); err != nil {
		return false
	}
	for _, v := range members {
		if !isZeroJSON(v) {
			return false
		}
	}
	return true
}

// encodeJSON encodes v without escaping <, > and &, which appear in
// reference ranges such as "<200".
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes a current-shape record field by field. It does not
// migrate; use Migrate for records of unknown shape.
func (r *Report) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*r = decodeFields(fields)
	return nil
}

func (p *Patient) UnmarshalJSON(data []byte) error {
	return unmarshalWith(data, p, decodePatient)
}

func (g *TestGroup) UnmarshalJSON(data []byte) error {
	return unmarshalWith(data, g, decodeGroup)
}

func (tr *TestResult) UnmarshalJSON(data []byte) error {
	return unmarshalWith(data, tr, decodeResult)
}

// unmarshalWith decodes a JSON object into dst with decode. Only input that
// is not an object is an error; null leaves dst untouched.
func unmarshalWith[T any](data []byte, dst *T, decode func(map[string]json.RawMessage) T) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields != nil {
		*dst = decode(fields)
	}
	return nil
}

// TotalPrice sums the snapshot prices of the given test groups.
func TotalPrice(tests []TestGroup) float64 {
	var sum float64
	for _, t := range tests {
		sum += t.Price
	}
	return sum
}

// HasAbnormal reports whether any result in the report is flagged high or low.
func (r *Report) HasAbnormal() bool {
	for _, g := range r.Tests {
		for _, tr := range g.TestResults {
			if tr.IsAbnormal {
				return true
			}
		}
	}
	return false
}
