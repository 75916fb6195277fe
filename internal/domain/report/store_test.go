package report

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pathoreport/pathoreport/internal/platform/kv"
)

const testKey = "pathoreport_reports"

func newTestStore(t *testing.T) (*Store, *kv.Memory) {
	t.Helper()
	mem := kv.NewMemory()
	return NewStore(mem, testKey, zerolog.Nop()), mem
}

func stored(t *testing.T, mem *kv.Memory) string {
	t.Helper()
	v, ok, err := mem.Get(context.Background(), testKey)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a stored collection")
	}
	return v
}

// failingKV fails every call.
type failingKV struct{}

var errBackend = errors.New("disk unavailable")

func (failingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errBackend
}

func (failingKV) Set(context.Context, string, string) error {
	return errBackend
}

func TestStore_LoadMissing(t *testing.T) {
	s, mem := newTestStore(t)
	reports, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reports == nil || len(reports) != 0 {
		t.Errorf("expected empty list, got %#v", reports)
	}
	if _, ok, _ := mem.Get(context.Background(), testKey); ok {
		t.Error("expected load not to write")
	}
}

func TestStore_LoadMalformed(t *testing.T) {
	for _, raw := range []string{"not json", `{"id":"R1"}`, `[{"id":`} {
		s, mem := newTestStore(t)
		_ = mem.Set(context.Background(), testKey, raw)

		reports, err := s.Load(context.Background())
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", raw, err)
		}
		if len(reports) != 0 {
			t.Errorf("%q: expected empty list, got %d reports", raw, len(reports))
		}
		if got := stored(t, mem); got != raw {
			t.Errorf("%q: malformed collection was overwritten with %q", raw, got)
		}
	}
}

func TestStore_LoadRewritesLegacy(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)
	_ = mem.Set(ctx, testKey, "["+legacyCBC+"]")

	reports, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 1 || len(reports[0].Tests) != 1 {
		t.Fatalf("expected one migrated report, got %+v", reports)
	}

	var raw []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stored(t, mem)), &raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := raw[0]["tests"]; !ok {
		t.Error("expected the stored record to be rewritten with tests")
	}
	if _, ok := raw[0]["testType"]; !ok {
		t.Error("expected legacy fields to stay in the stored record")
	}

	again, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again[0].Tests[0].ID != reports[0].Tests[0].ID {
		t.Error("expected the migrated group id to be stable across loads")
	}
}

func TestStore_LoadRewriteKeepsBadlyTypedFields(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)
	_ = mem.Set(ctx, testKey, `[{
		"id": "RPT7",
		"patient": {"name": "Ann", "age": "45", "email": "ann@x"},
		"date": 20240101,
		"testType": "CBC",
		"testResults": [{"id": "TR1", "testName": "Hemoglobin", "value": "14", "comment": "haemolysed"}],
		"price": 300
	}]`)

	if _, err := s.Load(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc []struct {
		Date    json.RawMessage            `json:"date"`
		Patient map[string]json.RawMessage `json:"patient"`
		Tests   []struct {
			TestResults []map[string]json.RawMessage `json:"testResults"`
		} `json:"tests"`
	}
	if err := json.Unmarshal([]byte(stored(t, mem)), &doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc) != 1 || len(doc[0].Tests) != 1 {
		t.Fatalf("expected the record to be rewritten with one group, got %s", stored(t, mem))
	}
	r := doc[0]
	if string(r.Date) != "20240101" {
		t.Errorf("expected date 20240101, got %s", r.Date)
	}
	if string(r.Patient["age"]) != `"45"` || string(r.Patient["email"]) != `"ann@x"` {
		t.Errorf("patient fields lost: %v", r.Patient)
	}
	if got := string(r.Tests[0].TestResults[0]["comment"]); got != `"haemolysed"` {
		t.Errorf("expected result comment to be kept, got %s", got)
	}
}

func TestStore_LoadKeepsForeignRecords(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)
	raw := "[" + legacyCBC + `,42]`
	_ = mem.Set(ctx, testKey, raw)

	reports, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if len(reports[1].Tests) != 0 {
		t.Errorf("expected the foreign record to read as an empty report")
	}
	if got := stored(t, mem); got != raw {
		t.Error("expected a collection with non-object records not to be rewritten")
	}
}

func TestStore_SaveRecomputesTotal(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	r := SampleReports()[0]
	r.TotalPrice = 999

	if err := s.Save(ctx, []Report{r}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TotalPrice != 300 {
		t.Errorf("expected total 300, got %v", got.TotalPrice)
	}
}

func TestStore_SaveEncoding(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)

	if err := s.Save(ctx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stored(t, mem); got != "[]" {
		t.Errorf("expected [], got %q", got)
	}

	if err := s.Save(ctx, SampleReports()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stored(t, mem), `"normalRange":"<200"`) {
		t.Error("expected reference ranges to be stored unescaped")
	}
}

func TestStore_GetByID(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	_ = s.Save(ctx, SampleReports())

	r, err := s.GetByID(ctx, "RPT002")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Patient.Name != "Emma Wilson" {
		t.Errorf("unexpected report: %+v", r.Patient)
	}
	if _, err := s.GetByID(ctx, "RPT404"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("expected ErrReportNotFound, got %v", err)
	}
}

func TestStore_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)
	_ = s.Save(ctx, SampleReports())

	if err := s.UpdateStatus(ctx, "RPT002", StatusPending); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, _ := s.GetByID(ctx, "RPT002")
	if r.Status != StatusPending {
		t.Errorf("expected Pending, got %q", r.Status)
	}
	other, _ := s.GetByID(ctx, "RPT001")
	if other.Status != StatusCompleted {
		t.Errorf("expected other report untouched, got %q", other.Status)
	}

	before := stored(t, mem)
	if err := s.UpdateStatus(ctx, "RPT404", StatusPending); err != nil {
		t.Fatalf("expected unknown id to be a no-op, got %v", err)
	}
	if stored(t, mem) != before {
		t.Error("expected unknown id not to write")
	}

	if err := s.UpdateStatus(ctx, "RPT001", "Archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestStore_InsertReplaceDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	samples := SampleReports()
	_ = s.Save(ctx, samples[1:])

	if err := s.Insert(ctx, samples[0]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reports, _ := s.Load(ctx)
	if len(reports) != 2 || reports[0].ID != "RPT001" {
		t.Fatalf("expected RPT001 first, got %+v", reports)
	}

	changed := samples[1]
	changed.Patient.Name = "Emma W."
	if err := s.Replace(ctx, changed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, _ := s.GetByID(ctx, "RPT002")
	if r.Patient.Name != "Emma W." {
		t.Errorf("expected replaced name, got %q", r.Patient.Name)
	}
	missing := changed
	missing.ID = "RPT404"
	if err := s.Replace(ctx, missing); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("expected ErrReportNotFound, got %v", err)
	}

	if err := s.Delete(ctx, "RPT001"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reports, _ = s.Load(ctx)
	if len(reports) != 1 || reports[0].ID != "RPT002" {
		t.Errorf("expected only RPT002 to remain, got %+v", reports)
	}
	if err := s.Delete(ctx, "RPT001"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("expected ErrReportNotFound, got %v", err)
	}
}

func TestStore_SeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)

	seeded, err := s.SeedIfEmpty(ctx, SampleReports())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !seeded {
		t.Error("expected an absent collection to be seeded")
	}
	reports, _ := s.Load(ctx)
	if len(reports) != 2 {
		t.Errorf("expected 2 sample reports, got %d", len(reports))
	}

	_ = mem.Set(ctx, testKey, "[]")
	seeded, err = s.SeedIfEmpty(ctx, SampleReports())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seeded {
		t.Error("expected an existing empty collection not to be seeded")
	}
}

func TestStore_ProviderErrors(t *testing.T) {
	ctx := context.Background()
	s := NewStore(failingKV{}, testKey, zerolog.Nop())

	if _, err := s.Load(ctx); !errors.Is(err, errBackend) {
		t.Errorf("expected backend error from Load, got %v", err)
	}
	if err := s.Save(ctx, nil); !errors.Is(err, errBackend) {
		t.Errorf("expected backend error from Save, got %v", err)
	}
	if _, err := s.SeedIfEmpty(ctx, nil); !errors.Is(err, errBackend) {
		t.Errorf("expected backend error from SeedIfEmpty, got %v", err)
	}
}
