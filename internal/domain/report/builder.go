package report

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pathoreport/pathoreport/internal/domain/catalog"
)

// newID is swapped in tests that need deterministic ids.
var newID = uuid.NewString

// DefaultValue is the value substituted for a parameter the operator left
// blank. Pending reports keep the "not yet collected" marker; any other
// status commits a literal zero.
func DefaultValue(status Status) string {
	if status == StatusPending {
		return PendingValue
	}
	return "0"
}

// BuildTestGroup combines a template with operator-entered values, keyed by
// parameter id, into a test group. Results follow template parameter order
// and each gets a fresh id. The template's name and price are snapshotted
// so later catalog changes never alter the group.
func BuildTestGroup(tmpl *catalog.Template, values map[string]string, status Status) (TestGroup, error) {
	if tmpl == nil {
		return TestGroup{}, ErrTemplateRequired
	}

	group := TestGroup{
		ID:          "TG-" + newID(),
		TestType:    tmpl.Name,
		Price:       tmpl.Price,
		TestResults: make([]TestResult, 0, len(tmpl.Parameters)),
	}
	for _, p := range tmpl.Parameters {
		value := values[p.ID]
		if value == "" {
			value = DefaultValue(status)
		}
		flag := Evaluate(value, p.NormalRange)
		group.TestResults = append(group.TestResults, TestResult{
			ID:          "TR-" + newID(),
			TestName:    p.TestName,
			Value:       value,
			Unit:        p.Unit,
			NormalRange: p.NormalRange,
			IsAbnormal:  IsAbnormal(flag),
			Flag:        flag,
		})
	}
	return group, nil
}

// BuildFromCatalog looks the template up by id and builds a group from it.
func BuildFromCatalog(templateID string, values map[string]string, status Status) (TestGroup, error) {
	if templateID == "" {
		return TestGroup{}, ErrTemplateRequired
	}
	tmpl, ok := catalog.Lookup(templateID)
	if !ok {
		return TestGroup{}, fmt.Errorf("%w: unknown template %q", ErrTemplateRequired, templateID)
	}
	return BuildTestGroup(&tmpl, values, status)
}

// AddTestGroup appends g to tests. The caller recomputes the report total.
func AddTestGroup(tests []TestGroup, g TestGroup) []TestGroup {
	out := make([]TestGroup, 0, len(tests)+1)
	out = append(out, tests...)
	return append(out, g)
}

// RemoveTestGroup drops every group with the given id. The caller
// recomputes the report total.
func RemoveTestGroup(tests []TestGroup, id string) []TestGroup {
	out := make([]TestGroup, 0, len(tests))
	for _, t := range tests {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}
