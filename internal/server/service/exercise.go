package service

import (
	"context"
	"errors"
	"strings"

	"repe/internal/server/core"
	"repe/internal/server/storage"

	"github.com/google/uuid"
)

// ExerciseQuery holds list parameters for ListExercises
type ExerciseQuery struct {
	Search   string
	Category string
	Limit    int
	Offset   int
}

// ListExercises returns one filtered page of exercises with the total match count
func (s *Service) ListExercises(ctx context.Context, q ExerciseQuery) ([]core.Exercise, core.Pagination, error) {
	filter := storage.ExerciseFilter{
		Search:   strings.TrimSpace(q.Search),
		Category: strings.TrimSpace(q.Category),
		Limit:    clampLimit(q.Limit, DefaultExerciseLimit, MaxExerciseLimit),
		Offset:   clampOffset(q.Offset),
	}

	records, total, err := s.store.ListExercises(ctx, filter)
	if err != nil {
		return nil, core.Pagination{}, translate(err, "exercises", "")
	}

	exercises := make([]core.Exercise, 0, len(records))
	for i := range records {
		exercises = append(exercises, toExercise(&records[i]))
	}
	return exercises, core.Pagination{Total: total, Offset: filter.Offset, Limit: filter.Limit}, nil
}

// CreateExercise adds a new exercise; a taken name is a CONFLICT
func (s *Service) CreateExercise(ctx context.Context, req core.CreateExerciseRequest) (*core.Exercise, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if err := core.ValidateStruct(&req); err != nil {
		return nil, err
	}

	now := s.now()
	record := &storage.ExerciseRecord{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Category:  req.Category,
		Equipment: req.Equipment,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if record.Equipment == nil {
		record.Equipment = []string{}
	}

	if err := s.store.CreateExercise(ctx, record); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, core.Conflict("exercise %q already exists", req.Name)
		}
		return nil, translate(err, "exercise", "")
	}

	e := toExercise(record)
	return &e, nil
}

// GetExercise returns one exercise by ID
func (s *Service) GetExercise(ctx context.Context, id string) (*core.Exercise, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, core.NotFound("exercise %s not found", id)
	}
	record, err := s.store.GetExercise(ctx, id)
	if err != nil {
		return nil, translate(err, "exercise", id)
	}
	e := toExercise(record)
	return &e, nil
}

// BulkSeedExercises inserts exercises that do not exist yet and returns how many were added
func (s *Service) BulkSeedExercises(ctx context.Context, reqs []core.CreateExerciseRequest) (int, error) {
	now := s.now()
	records := make([]storage.ExerciseRecord, 0, len(reqs))
	for _, req := range reqs {
		req.Name = strings.TrimSpace(req.Name)
		req.Category = strings.TrimSpace(req.Category)
		if err := core.ValidateStruct(&req); err != nil {
			return 0, err
		}
		records = append(records, storage.ExerciseRecord{
			ID:        uuid.New().String(),
			Name:      req.Name,
			Category:  req.Category,
			Equipment: req.Equipment,
			Notes:     req.Notes,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	n, err := s.store.BulkInsertExercises(ctx, records)
	if err != nil {
		return 0, translate(err, "exercises", "")
	}
	return n, nil
}

func toExercise(r *storage.ExerciseRecord) core.Exercise {
	equipment := r.Equipment
	if equipment == nil {
		equipment = []string{}
	}
	return core.Exercise{
		ID:        r.ID,
		Name:      r.Name,
		Category:  r.Category,
		Equipment: equipment,
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
