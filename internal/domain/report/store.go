package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pathoreport/pathoreport/internal/platform/kv"
)

// Store persists the whole report collection as one JSON array under a
// single key. Every operation reads or writes the full collection. Store
// does no locking; callers that share one serialise access (see Service).
type Store struct {
	kv     kv.Provider
	key    string
	logger zerolog.Logger
}

func NewStore(p kv.Provider, key string, logger zerolog.Logger) *Store {
	return &Store{kv: p, key: key, logger: logger.With().Str("component", "report_store").Logger()}
}

// Load returns the stored reports in stored order, each migrated to the
// current shape. A missing or unparsable collection reads as empty; only
// provider failures are returned as errors. When the collection held legacy
// records it is written back in the current shape.
func (s *Store) Load(ctx context.Context) ([]Report, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("read report collection: %w", err)
	}
	if !ok {
		return []Report{}, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("persisted report collection is malformed, reading as empty")
		return []Report{}, nil
	}

	reports := make([]Report, 0, len(records))
	legacy, foreign := 0, 0
	for i, rec := range records {
		r, shape := migrate(rec)
		switch shape {
		case ShapeLegacy:
			legacy++
		case ShapeUnknown:
			if !isObject(rec) {
				foreign++
			}
			s.logger.Warn().Int("index", i).Str("id", r.ID).Msg("unrecognised report shape, reading as a report with no tests")
		}
		reports = append(reports, r)
	}

	// Non-object records cannot survive a rewrite, so leave the stored
	// document alone when any are present.
	if legacy > 0 && foreign == 0 {
		if err := s.Save(ctx, reports); err != nil {
			return nil, fmt.Errorf("rewrite migrated reports: %w", err)
		}
		s.logger.Info().Int("migrated", legacy).Msg("rewrote legacy reports in current shape")
	}
	return reports, nil
}

// Save replaces the stored collection with reports. Each report's total is
// recomputed from its tests before writing.
func (s *Store) Save(ctx context.Context, reports []Report) error {
	out := make([]Report, len(reports))
	for i, r := range reports {
		if r.Tests == nil {
			r.Tests = []TestGroup{}
		}
		r.TotalPrice = TotalPrice(r.Tests)
		out[i] = r
	}
	data, err := encodeJSON(out)
	if err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("write report collection: %w", err)
	}
	return nil
}

// GetByID returns the first report with the given id, or ErrReportNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*Report, error) {
	reports, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(reports, id); i >= 0 {
		return &reports[i], nil
	}
	return nil, ErrReportNotFound
}

// UpdateStatus sets the status of the report with the given id. An unknown
// id is a no-op.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	reports, err := s.Load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(reports, id)
	if i < 0 {
		return nil
	}
	reports[i].Status = status
	reports[i].Extra = withoutKeys(reports[i].Extra, "status")
	return s.Save(ctx, reports)
}

// Insert adds r at the front of the collection.
func (s *Store) Insert(ctx context.Context, r Report) error {
	reports, err := s.Load(ctx)
	if err != nil {
		return err
	}
	return s.Save(ctx, append([]Report{r}, reports...))
}

// Replace swaps the stored report that has r's id for r.
func (s *Store) Replace(ctx context.Context, r Report) error {
	reports, err := s.Load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(reports, r.ID)
	if i < 0 {
		return ErrReportNotFound
	}
	reports[i] = r
	return s.Save(ctx, reports)
}

// Delete removes every report with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	reports, err := s.Load(ctx)
	if err != nil {
		return err
	}
	kept := make([]Report, 0, len(reports))
	for _, r := range reports {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(reports) {
		return ErrReportNotFound
	}
	return s.Save(ctx, kept)
}

// SeedIfEmpty writes samples when nothing has ever been stored under the
// key. An existing collection, even an empty one, is left untouched.
func (s *Store) SeedIfEmpty(ctx context.Context, samples []Report) (bool, error) {
	_, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return false, fmt.Errorf("read report collection: %w", err)
	}
	if ok {
		return false, nil
	}
	if err := s.Save(ctx, samples); err != nil {
		return false, err
	}
	s.logger.Info().Int("count", len(samples)).Msg("seeded sample reports")
	return true, nil
}

func indexOf(reports []Report, id string) int {
	for i := range reports {
		if reports[i].ID == id {
			return i
		}
	}
	return -1
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
