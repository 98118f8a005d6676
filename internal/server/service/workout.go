package service

import (
	"context"
	"errors"
	"strings"

	"repe/internal/server/core"
	"repe/internal/server/storage"

	"github.com/google/uuid"
)

// ListWorkouts returns one page of workouts, newest first, each with its exercise summaries
func (s *Service) ListWorkouts(ctx context.Context, limit, offset int) ([]core.Workout, core.Pagination, error) {
	limit = clampLimit(limit, DefaultWorkoutLimit, MaxWorkoutLimit)
	offset = clampOffset(offset)

	records, total, err := s.store.ListWorkouts(ctx, limit, offset)
	if err != nil {
		return nil, core.Pagination{}, translate(err, "workouts", "")
	}

	workouts := make([]core.Workout, 0, len(records))
	for i := range records {
		items, err := s.store.ListWorkoutExercises(ctx, records[i].ID)
		if err != nil {
			return nil, core.Pagination{}, translate(err, "workout exercises", records[i].ID)
		}

		w := toWorkout(&records[i])
		for _, item := range items {
			w.Exercises = append(w.Exercises, core.ExerciseSummary{
				WorkoutExerciseID: item.ID,
				ExerciseID:        item.ExerciseID,
				Name:              item.Exercise.Name,
				OrderIndex:        item.OrderIndex,
			})
		}
		workouts = append(workouts, w)
	}
	return workouts, core.Pagination{Total: total, Offset: offset, Limit: limit}, nil
}

// GetWorkout returns a workout with its ordered exercises, their sets and aggregate totals
func (s *Service) GetWorkout(ctx context.Context, id string) (*core.WorkoutDetail, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, core.NotFound("workout %s not found", id)
	}

	record, err := s.store.GetWorkout(ctx, id)
	if err != nil {
		return nil, translate(err, "workout", id)
	}
	items, err := s.store.ListWorkoutExercises(ctx, id)
	if err != nil {
		return nil, translate(err, "workout exercises", id)
	}

	detail := &core.WorkoutDetail{
		ID:        record.ID,
		Name:      record.Name,
		UserID:    record.UserID,
		StartedAt: record.StartedAt,
		Source:    record.Source,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
		Exercises: make([]core.WorkoutExerciseDetail, 0, len(items)),
	}

	var all []core.Set
	for i := range items {
		sets, err := s.store.ListSetsByWorkoutExercise(ctx, items[i].ID)
		if err != nil {
			return nil, translate(err, "sets", items[i].ID)
		}

		we := core.WorkoutExerciseDetail{
			ID:           items[i].ID,
			OrderIndex:   items[i].OrderIndex,
			TargetSets:   items[i].TargetSets,
			TargetReps:   items[i].TargetReps,
			TargetWeight: items[i].TargetWeight,
			Exercise:     toExercise(&items[i].Exercise),
			Sets:         make([]core.Set, 0, len(sets)),
		}
		for j := range sets {
			we.Sets = append(we.Sets, toSet(&sets[j]))
		}
		all = append(all, we.Sets...)
		detail.Exercises = append(detail.Exercises, we)
	}
	detail.Totals = computeTotals(all)

	return detail, nil
}

// computeTotals sums sets, reps and volume (reps x weight) and averages RPE over sets that carry one
func computeTotals(sets []core.Set) core.WorkoutTotals {
	var totals core.WorkoutTotals
	var rpeSum float64
	var rpeCount int

	for _, set := range sets {
		totals.Sets++
		totals.Reps += set.Reps
		totals.Volume += float64(set.Reps) * set.Weight
		if set.RPE != nil {
			rpeSum += *set.RPE
			rpeCount++
		}
	}
	if rpeCount > 0 {
		avg := rpeSum / float64(rpeCount)
		totals.AverageRPE = &avg
	}
	return totals
}

// UpsertWorkout creates or fully replaces a workout and its exercise list.
// userID is the authenticated caller and is used when the request names none.
func (s *Service) UpsertWorkout(ctx context.Context, req core.UpsertWorkoutRequest, userID string) (*core.WorkoutDetail, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := core.ValidateStruct(&req); err != nil {
		return nil, err
	}
	if req.Exercises == nil {
		return nil, core.Validation("exercises is required")
	}

	items, err := workoutItems(req.Exercises)
	if err != nil {
		return nil, err
	}

	now := s.now()
	record := &storage.WorkoutRecord{
		ID:        req.ID,
		Name:      req.Name,
		UserID:    req.UserID,
		StartedAt: now,
		Source:    core.Source(req.Source).String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if record.UserID == "" {
		record.UserID = userID
	}

	if req.ID != "" {
		existing, err := s.store.GetWorkout(ctx, req.ID)
		switch {
		case err == nil:
			record.StartedAt = existing.StartedAt
			record.CreatedAt = existing.CreatedAt
			if req.UserID == "" && existing.UserID != "" {
				record.UserID = existing.UserID
			}
		case !errors.Is(err, storage.ErrNotFound):
			return nil, translate(err, "workout", req.ID)
		}
	}

	if req.StartTime != "" {
		if record.StartedAt, err = parseTimestamp("startTime", req.StartTime); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpsertWorkout(ctx, record, items); err != nil {
		return nil, translate(err, "workout", record.ID)
	}
	return s.GetWorkout(ctx, record.ID)
}

func workoutItems(inputs []core.WorkoutExerciseInput) ([]storage.WorkoutItem, error) {
	seen := make(map[int]bool, len(inputs))
	items := make([]storage.WorkoutItem, 0, len(inputs))

	for i, in := range inputs {
		if in.OrderIndex < 0 {
			return nil, core.Validation("exercises[%d].orderIndex must be at least 0", i)
		}
		if seen[in.OrderIndex] {
			return nil, core.Validation("exercises[%d].orderIndex %d is duplicated", i, in.OrderIndex)
		}
		seen[in.OrderIndex] = true

		name := strings.TrimSpace(in.Name)
		if in.ExerciseID == "" && name == "" {
			return nil, core.Validation("exercises[%d] requires exerciseId or name", i)
		}

		items = append(items, storage.WorkoutItem{
			ExerciseID:   in.ExerciseID,
			Name:         name,
			Category:     strings.TrimSpace(in.Category),
			OrderIndex:   in.OrderIndex,
			TargetSets:   in.TargetSets,
			TargetReps:   in.TargetReps,
			TargetWeight: in.TargetWeight,
		})
	}
	return items, nil
}

// AddWorkoutExercise appends one exercise to an existing workout and returns the updated detail
func (s *Service) AddWorkoutExercise(ctx context.Context, workoutID string, req core.AddWorkoutExerciseRequest) (*core.WorkoutDetail, error) {
	if _, err := uuid.Parse(workoutID); err != nil {
		return nil, core.NotFound("workout %s not found", workoutID)
	}
	if err := core.ValidateStruct(&req); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if req.ExerciseID == "" && name == "" {
		return nil, core.Validation("exerciseId or name is required")
	}

	item := storage.WorkoutItem{
		ExerciseID:   req.ExerciseID,
		Name:         name,
		Category:     strings.TrimSpace(req.Category),
		TargetSets:   req.TargetSets,
		TargetReps:   req.TargetReps,
		TargetWeight: req.TargetWeight,
	}

	err := s.store.AddWorkoutExercise(ctx, workoutID, item, req.OrderIndex, s.now())
	switch {
	case errors.Is(err, storage.ErrConflict):
		return nil, core.Conflict("orderIndex %d is already used in workout %s", *req.OrderIndex, workoutID)
	case err != nil:
		return nil, translate(err, "workout", workoutID)
	}
	return s.GetWorkout(ctx, workoutID)
}

// DeleteWorkout removes a workout with its exercises and sets; history rows are kept unlinked
func (s *Service) DeleteWorkout(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return core.NotFound("workout %s not found", id)
	}
	return translate(s.store.DeleteWorkout(ctx, id), "workout", id)
}

func toWorkout(r *storage.WorkoutRecord) core.Workout {
	return core.Workout{
		ID:        r.ID,
		Name:      r.Name,
		UserID:    r.UserID,
		StartedAt: r.StartedAt,
		Source:    r.Source,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Exercises: []core.ExerciseSummary{},
	}
}
