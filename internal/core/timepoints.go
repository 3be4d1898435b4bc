package core

import (
	"context"
	"errors"

	"github.com/lejeunel/image-db-app/internal/ingest"
	"github.com/lejeunel/image-db-app/pkg/domain"
)

// ErrNoObjectReader is returned by operations needing the object store when
// the service was built without one.
var ErrNoObjectReader = errors.New("core: no object reader configured")

// Ingestion is the outcome of registering a timepoint.
type Ingestion struct {
	TimePoint TimePoint `json:"timepoint"`
	Items     []Item    `json:"items"`
}

// CreateTimePoint registers an acquisition of a plate: the prefix tp.URI is
// listed, filtered through the filename patterns and one item is stored per
// kept file, together with the timepoint, in a single transaction. Any
// failure leaves the catalog unchanged.
func (s *Service) CreateTimePoint(ctx context.Context, tp TimePoint) (Ingestion, Result, error) {
	var out Ingestion
	res, err := s.observe(ctx, "create_timepoint", func(ctx context.Context) (Result, error) {
		if s.reader == nil {
			return Result{}, ErrNoObjectReader
		}
		if err := s.reader.ValidatePrefix(tp.URI); err != nil {
			return Result{}, err
		}
		if err := s.view(ctx, func(v TransactionView) error {
			if _, ok := v.FindPlate(tp.PlateID); !ok {
				return domain.NewNotFound(EntityPlate, tp.PlateID)
			}
			for _, existing := range v.ListTimePoints() {
				if existing.URI == tp.URI {
					return domain.NewDuplicate(EntityTimePoint, "uri", tp.URI)
				}
			}
			return nil
		}); err != nil {
			return Result{}, err
		}

		records, err := ingest.NewParser(s.reader, s.patterns).Parse(ctx, tp.URI)
		if err != nil {
			return Result{}, err
		}
		s.logger.Info("listed timepoint prefix", "uri", tp.URI, "kept", len(records))

		return s.store.RunInTransaction(ctx, func(tx Transaction) error {
			created, err := tx.CreateTimePoint(tp)
			if err != nil {
				return err
			}
			items := make([]Item, 0, len(records))
			for _, r := range records {
				items = append(items, r.Item(created.PlateID, created.ID))
			}
			stored, err := tx.CreateItems(items)
			if err != nil {
				return err
			}
			out = Ingestion{TimePoint: created, Items: stored}
			return nil
		})
	})
	if err != nil {
		return Ingestion{}, res, err
	}
	return out, res, nil
}

// UpdateTimePoint mutates the acquisition time of a timepoint.
func (s *Service) UpdateTimePoint(ctx context.Context, id string, mutator func(*TimePoint) error) (TimePoint, Result, error) {
	var updated TimePoint
	res, err := s.run(ctx, "update_timepoint", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateTimePoint(id, mutator)
		return err
	})
	return updated, res, err
}

// DeleteTimePoint removes a timepoint and its items.
func (s *Service) DeleteTimePoint(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_timepoint", func(tx Transaction) error {
		return tx.DeleteTimePoint(id)
	})
}

// DeletePlateTimePoints removes every timepoint of a plate and returns how
// many were deleted.
func (s *Service) DeletePlateTimePoints(ctx context.Context, plateID string) (int, Result, error) {
	var n int
	res, err := s.run(ctx, "delete_plate_timepoints", func(tx Transaction) error {
		if _, ok := tx.FindPlate(plateID); !ok {
			return domain.NewNotFound(EntityPlate, plateID)
		}
		for _, tp := range tx.ListTimePointsByPlate(plateID) {
			if err := tx.DeleteTimePoint(tp.ID); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, res, err
}

// GetTimePoint returns one timepoint.
func (s *Service) GetTimePoint(ctx context.Context, id string) (TimePoint, error) {
	var tp TimePoint
	err := s.view(ctx, func(v TransactionView) error {
		var ok bool
		if tp, ok = v.FindTimePoint(id); !ok {
			return domain.NewNotFound(EntityTimePoint, id)
		}
		return nil
	})
	return tp, err
}

// ListTimePoints returns the timepoints of a plate, or all timepoints when
// plateID is empty.
func (s *Service) ListTimePoints(ctx context.Context, plateID string) ([]TimePoint, error) {
	var out []TimePoint
	err := s.view(ctx, func(v TransactionView) error {
		if plateID == "" {
			out = v.ListTimePoints()
			return nil
		}
		if _, ok := v.FindPlate(plateID); !ok {
			return domain.NewNotFound(EntityPlate, plateID)
		}
		out = v.ListTimePointsByPlate(plateID)
		return nil
	})
	return out, err
}
