package backup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pathoreport/pathoreport/internal/domain/report"
)

func TestExport_Format(t *testing.T) {
	doc, err := Export(report.SampleReports())
	require.NoError(t, err)

	s := string(doc)
	assert.True(t, strings.HasPrefix(s, "[\n  {\n    \"id\": \"RPT001\""), "unexpected start: %q", s[:40])
	assert.True(t, strings.HasSuffix(s, "\n]"))
	assert.Contains(t, s, `"normalRange": "<200"`)
}

func TestExport_Empty(t *testing.T) {
	doc, err := Export(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(doc))
}

func TestRoundTrip(t *testing.T) {
	samples := report.SampleReports()
	doc, err := Export(samples)
	require.NoError(t, err)

	got, err := Import(doc)
	require.NoError(t, err)
	if diff := cmp.Diff(samples, got); diff != "" {
		t.Errorf("round trip changed the collection (-want +got):\n%s", diff)
	}
}

func TestRoundTrip_Legacy(t *testing.T) {
	legacy := `[{"id":"OLD1","patient":{"name":"Asha","age":60},"testType":"Thyroid Panel","testResults":[{"id":"TR1","testName":"TSH","value":"5.1","unit":"mIU/L","normalRange":"0.4-4.0","isAbnormal":true,"flag":"high"}],"price":1000,"date":"2023-05-01","status":"Completed","collectedBy":"Lab Technician"}]`

	first, err := Import([]byte(legacy))
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Len(t, first[0].Tests, 1)
	assert.Equal(t, "Thyroid Panel", first[0].Tests[0].TestType)
	assert.Equal(t, 1000.0, first[0].TotalPrice)

	doc, err := Export(first)
	require.NoError(t, err)
	second, err := Import(doc)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second round trip changed the collection (-first +second):\n%s", diff)
	}

	var raw []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc, &raw))
	assert.Contains(t, raw[0], "testType")
	assert.Contains(t, raw[0], "tests")
}

func TestImport_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"not json", "reports", ErrMalformedDocument},
		{"truncated", `[{"id":`, ErrMalformedDocument},
		{"empty", "", ErrMalformedDocument},
		{"object", `{"reports":[]}`, ErrUnexpectedShape},
		{"string", `"[]"`, ErrUnexpectedShape},
		{"number", `3`, ErrUnexpectedShape},
		{"null", `null`, ErrUnexpectedShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Import([]byte(tt.doc))
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, got)
		})
	}
}

func TestImport_DegradesBadRecords(t *testing.T) {
	got, err := Import([]byte(`[1, {"id":"X"}, {"id":"Y","tests":[]}]`))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Empty(t, got[0].Tests)
	assert.Equal(t, "X", got[1].ID)
	assert.Empty(t, got[1].Tests)
	assert.Equal(t, "Y", got[2].ID)
}

func TestFileName(t *testing.T) {
	now := time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "pathoreport-backup-2024-02-29.json", FileName(now))
}

// memCollection is an in-memory Collection.
type memCollection struct {
	reports  []report.Report
	restored bool
}

func (m *memCollection) All(context.Context) ([]report.Report, error) { return m.reports, nil }

func (m *memCollection) Restore(_ context.Context, reports []report.Report) error {
	m.reports = reports
	m.restored = true
	return nil
}

func TestHandler_Download(t *testing.T) {
	h := NewHandler(&memCollection{reports: report.SampleReports()})
	h.now = func() time.Time { return time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC) }
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/backup", nil), rec)

	require.NoError(t, h.Download(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="pathoreport-backup-2024-01-31.json"`, rec.Header().Get(echo.HeaderContentDisposition))

	got, err := Import(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestHandler_RestoreRequiresConfirm(t *testing.T) {
	coll := &memCollection{reports: report.SampleReports()}
	h := NewHandler(coll)
	e := echo.New()
	doc := `[{"id":"NEW","tests":[]}]`

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/v1/restore", strings.NewReader(doc)), rec)
	require.NoError(t, h.Restore(c))
	assert.JSONEq(t, `{"current":2,"incoming":1,"committed":false}`, rec.Body.String())
	assert.False(t, coll.restored)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/api/v1/restore?confirm=true", strings.NewReader(doc)), rec)
	require.NoError(t, h.Restore(c))
	assert.JSONEq(t, `{"current":2,"incoming":1,"committed":true}`, rec.Body.String())
	assert.True(t, coll.restored)
	require.Len(t, coll.reports, 1)
	assert.Equal(t, "NEW", coll.reports[0].ID)
}

func TestHandler_RestoreRejectsBadDocument(t *testing.T) {
	coll := &memCollection{reports: report.SampleReports()}
	h := NewHandler(coll)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/v1/restore?confirm=true", strings.NewReader(`{"a":1}`)), httptest.NewRecorder())

	err := h.Restore(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
	assert.False(t, coll.restored)
}
