package service

import (
	"context"

	"repe/internal/server/core"
	"repe/internal/server/storage"

	"github.com/google/uuid"
)

// AddSet logs a set against a workout exercise
func (s *Service) AddSet(ctx context.Context, workoutExerciseID string, req core.SetRequest) (*core.Set, error) {
	if _, err := uuid.Parse(workoutExerciseID); err != nil {
		return nil, core.NotFound("workout exercise %s not found", workoutExerciseID)
	}
	if err := core.ValidateStruct(&req); err != nil {
		return nil, err
	}

	now := s.now()
	performedAt, err := timestampOr("performedAt", req.PerformedAt, now)
	if err != nil {
		return nil, err
	}

	record := &storage.SetRecord{
		ID:                uuid.New().String(),
		WorkoutExerciseID: workoutExerciseID,
		PerformedAt:       performedAt,
		Reps:              *req.Reps,
		Weight:            *req.Weight,
		RPE:               req.RPE,
		RestSeconds:       req.RestSeconds,
		Notes:             req.Notes,
		CreatedAt:         now,
	}
	if err := checkSetRanges(record); err != nil {
		return nil, err
	}

	if err := s.store.InsertSet(ctx, record); err != nil {
		return nil, translate(err, "workout exercise", workoutExerciseID)
	}
	set := toSet(record)
	return &set, nil
}

// UpdateSet applies a partial update; nil fields keep their stored values.
// A non-empty workoutExerciseID must own the set.
func (s *Service) UpdateSet(ctx context.Context, workoutExerciseID, setID string, req core.UpdateSetRequest) (*core.Set, error) {
	if err := core.ValidateStruct(&req); err != nil {
		return nil, err
	}

	record, err := s.ownedSet(ctx, workoutExerciseID, setID)
	if err != nil {
		return nil, err
	}

	if req.Reps != nil {
		record.Reps = *req.Reps
	}
	if req.Weight != nil {
		record.Weight = *req.Weight
	}
	if req.RPE != nil {
		record.RPE = req.RPE
	}
	if req.RestSeconds != nil {
		record.RestSeconds = req.RestSeconds
	}
	if req.Notes != nil {
		record.Notes = req.Notes
	}
	if req.PerformedAt != "" {
		if record.PerformedAt, err = parseTimestamp("performedAt", req.PerformedAt); err != nil {
			return nil, err
		}
	}
	if err := checkSetRanges(record); err != nil {
		return nil, err
	}

	if err := s.store.UpdateSet(ctx, record); err != nil {
		return nil, translate(err, "set", setID)
	}
	set := toSet(record)
	return &set, nil
}

// DeleteSet removes one set; a non-empty workoutExerciseID must own it
func (s *Service) DeleteSet(ctx context.Context, workoutExerciseID, setID string) error {
	if _, err := s.ownedSet(ctx, workoutExerciseID, setID); err != nil {
		return err
	}
	return translate(s.store.DeleteSet(ctx, setID), "set", setID)
}

func (s *Service) ownedSet(ctx context.Context, workoutExerciseID, setID string) (*storage.SetRecord, error) {
	if _, err := uuid.Parse(setID); err != nil {
		return nil, core.NotFound("set %s not found", setID)
	}
	record, err := s.store.GetSet(ctx, setID)
	if err != nil {
		return nil, translate(err, "set", setID)
	}
	if workoutExerciseID != "" && record.WorkoutExerciseID != workoutExerciseID {
		return nil, core.NotFound("set %s not found in workout exercise %s", setID, workoutExerciseID)
	}
	return record, nil
}

// ListSetsByWorkout returns the sets across all exercises of a workout, newest first
func (s *Service) ListSetsByWorkout(ctx context.Context, workoutID string, limit, offset int) ([]core.Set, error) {
	if _, err := uuid.Parse(workoutID); err != nil {
		return nil, core.NotFound("workout %s not found", workoutID)
	}
	exists, err := s.store.WorkoutExists(ctx, workoutID)
	if err != nil {
		return nil, translate(err, "workout", workoutID)
	}
	if !exists {
		return nil, core.NotFound("workout %s not found", workoutID)
	}

	records, err := s.store.ListSetsByWorkout(ctx, workoutID,
		clampLimit(limit, DefaultSetLimit, MaxSetLimit), clampOffset(offset))
	if err != nil {
		return nil, translate(err, "sets", workoutID)
	}

	sets := make([]core.Set, 0, len(records))
	for i := range records {
		sets = append(sets, toSet(&records[i]))
	}
	return sets, nil
}

// checkSetRanges enforces the same bounds as the sets table constraints
func checkSetRanges(r *storage.SetRecord) error {
	if r.Reps < 0 {
		return core.Validation("reps must be at least 0")
	}
	if r.Weight < 0 {
		return core.Validation("weight must be at least 0")
	}
	if r.RPE != nil && (*r.RPE < 0 || *r.RPE > 10) {
		return core.Validation("rpe must be between 0 and 10")
	}
	if r.RestSeconds != nil && *r.RestSeconds < 0 {
		return core.Validation("restSeconds must be at least 0")
	}
	return nil
}

func toSet(r *storage.SetRecord) core.Set {
	return core.Set{
		ID:                r.ID,
		WorkoutExerciseID: r.WorkoutExerciseID,
		PerformedAt:       r.PerformedAt,
		Reps:              r.Reps,
		Weight:            r.Weight,
		RPE:               r.RPE,
		RestSeconds:       r.RestSeconds,
		Notes:             r.Notes,
		CreatedAt:         r.CreatedAt,
	}
}
