package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// randIntN draws the numeric suffix of a patientId.
var randIntN = rand.IntN

// AgeText is an operator-entered age. It accepts a JSON string or number so
// that form posts and scripted clients can both submit it.
type AgeText string

func (a *AgeText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AgeText(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("age: %w", err)
	}
	*a = AgeText(n.String())
	return nil
}

// PatientDraft is the patient section of the report form.
type PatientDraft struct {
	Name   string  `json:"name"`
	Age    AgeText `json:"age"`
	Gender Gender  `json:"gender"`
	Phone  string  `json:"phone"`
}

// Draft is an unsaved report as submitted by the report form. Tests are
// groups already produced by BuildTestGroup.
type Draft struct {
	Patient PatientDraft `json:"patient"`
	Status  Status       `json:"status"`
	Tests   []TestGroup  `json:"tests"`
}

// parseAge reads the leading integer of a, so "45", "45.0" and "45 years"
// are all 45. Input with no leading digits is rejected, as are negative ages.
func parseAge(a AgeText) (int, error) {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return 0, ErrPatientAgeRequired
	}
	end := 0
	if s[0] == '+' || s[0] == '-' {
		end = 1
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPatientAge, s)
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPatientAge, s)
	}
	return n, nil
}

// Assemble validates d and turns it into a report. When existing is nil a
// new report is minted with fresh identifiers and timestamps; otherwise the
// identity, provenance and unmodelled fields of existing are kept and only
// the patient details, status and tests are replaced.
func Assemble(d Draft, existing *Report, now time.Time, collectedBy string) (Report, error) {
	name := strings.TrimSpace(d.Patient.Name)
	if name == "" {
		return Report{}, ErrPatientNameRequired
	}
	age, err := parseAge(d.Patient.Age)
	if err != nil {
		return Report{}, err
	}
	if len(d.Tests) == 0 {
		return Report{}, ErrNoTests
	}

	status := d.Status
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return Report{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	gender := d.Patient.Gender
	if gender == "" {
		gender = GenderMale
	}
	if !gender.Valid() {
		return Report{}, fmt.Errorf("%w: %q", ErrInvalidGender, gender)
	}

	tests := make([]TestGroup, len(d.Tests))
	copy(tests, d.Tests)

	var r Report
	if existing != nil {
		r = *existing
		r.Extra = withoutKeys(r.Extra, "status")
		r.Patient.Extra = withoutKeys(r.Patient.Extra, "name", "age", "gender", "phone")
	} else {
		now = now.UTC()
		r = Report{
			ID: "RPT-" + newID(),
			Patient: Patient{
				ID:        "P-" + newID(),
				PatientID: fmt.Sprintf("PAT-%d-%03d", now.Year(), randIntN(1000)),
			},
			Date:        now.Format(dateLayout),
			CollectedBy: collectedBy,
			CreatedAt:   now.Format(timestampLayout),
		}
	}

	r.Patient.Name = name
	r.Patient.Age = age
	r.Patient.Gender = gender
	r.Patient.Phone = strings.TrimSpace(d.Patient.Phone)
	r.Status = status
	r.Tests = tests
	r.TotalPrice = TotalPrice(tests)
	return r, nil
}

// withoutKeys returns a copy of extra without keys, or nil when nothing is
// left. Fields that are about to be overwritten must not keep a stale
// preserved value.
func withoutKeys(extra map[string]json.RawMessage, keys ...string) map[string]json.RawMessage {
	if len(extra) == 0 {
		return nil
	}
	out := maps.Clone(extra)
	for _, k := range keys {
		delete(out, k)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
