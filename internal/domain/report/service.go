package report

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pathoreport/pathoreport/pkg/pagination"
)

// StatusAll matches every status in a Filter.
const StatusAll = "All"

// Filter selects reports for the report list.
type Filter struct {
	// Query is matched case-insensitively against the patient name, the
	// patientId and every test group's type.
	Query    string
	Status   string
	Page     int
	PageSize int
}

// Service runs each report operation as one read-modify-write of the store,
// one caller at a time.
type Service struct {
	mu          sync.Mutex
	store       *Store
	collectedBy string
	pageSize    int
	now         func() time.Time
	logger      zerolog.Logger
}

func NewService(store *Store, collectedBy string, pageSize int, logger zerolog.Logger) *Service {
	return &Service{
		store:       store,
		collectedBy: collectedBy,
		pageSize:    pageSize,
		now:         time.Now,
		logger:      logger.With().Str("component", "report_service").Logger(),
	}
}

func (s *Service) Create(ctx context.Context, d Draft) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := Assemble(d, nil, s.now(), s.collectedBy)
	if err != nil {
		return Report{}, err
	}
	if err := s.store.Insert(ctx, r); err != nil {
		return Report{}, err
	}
	s.logger.Info().Str("report_id", r.ID).Int("tests", len(r.Tests)).Msg("report created")
	return r, nil
}

func (s *Service) Update(ctx context.Context, id string, d Draft) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Report{}, err
	}
	r, err := Assemble(d, existing, s.now(), s.collectedBy)
	if err != nil {
		return Report{}, err
	}
	if err := s.store.Replace(ctx, r); err != nil {
		return Report{}, err
	}
	s.logger.Info().Str("report_id", r.ID).Msg("report updated")
	return r, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("report_id", id).Msg("report deleted")
	return nil
}

// UpdateStatus changes only the status of a report. Unlike Store.UpdateStatus
// an unknown id is reported as ErrReportNotFound.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (Report, error) {
	if !status.Valid() {
		return Report{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Report{}, err
	}
	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		return Report{}, err
	}
	r.Status = status
	return *r, nil
}

func (s *Service) Get(ctx context.Context, id string) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Report{}, err
	}
	return *r, nil
}

// All returns the full collection in stored order.
func (s *Service) All(ctx context.Context) ([]Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load(ctx)
}

// List returns one page of the reports matching f and the number of
// matching reports.
func (s *Service) List(ctx context.Context, f Filter) ([]Report, int, error) {
	if f.Status != "" && f.Status != StatusAll && !Status(f.Status).Valid() {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidStatus, f.Status)
	}

	reports, err := s.All(ctx)
	if err != nil {
		return nil, 0, err
	}

	matched := make([]Report, 0, len(reports))
	for _, r := range reports {
		if f.matches(r) {
			matched = append(matched, r)
		}
	}
	start, end := pagination.New(f.Page, f.PageSize, s.pageSize).Bounds(len(matched))
	return matched[start:end], len(matched), nil
}

func (f Filter) matches(r Report) bool {
	if f.Status != "" && f.Status != StatusAll && string(r.Status) != f.Status {
		return false
	}
	q := strings.ToLower(f.Query)
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(r.Patient.Name), q) ||
		strings.Contains(strings.ToLower(r.Patient.PatientID), q) {
		return true
	}
	for _, g := range r.Tests {
		if strings.Contains(strings.ToLower(g.TestType), q) {
			return true
		}
	}
	return false
}

// Restore replaces the whole collection with reports.
func (s *Service) Restore(ctx context.Context, reports []Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(ctx, reports); err != nil {
		return err
	}
	s.logger.Warn().Int("count", len(reports)).Msg("report collection replaced from backup")
	return nil
}

// Seed writes the sample reports when the store has never been written.
func (s *Service) Seed(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.SeedIfEmpty(ctx, SampleReports())
}
