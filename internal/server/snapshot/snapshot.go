// Package snapshot exports the whole database to a JSON document and imports it back.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"repe/internal/filestore"
	"repe/internal/server/core"
	"repe/internal/server/service"
)

const Version = 1

type Snapshot struct {
	Version    int                  `json:"version"`
	ExportedAt time.Time            `json:"exportedAt"`
	Exercises  []core.Exercise      `json:"exercises"`
	Workouts   []core.WorkoutDetail `json:"workouts"`
	History    []core.HistoryEntry  `json:"history"`
}

// Result counts what an import wrote
type Result struct {
	Exercises      int
	Workouts       int
	Sets           int
	History        int
	HistorySkipped int
}

// Export reads every exercise, workout and history entry
func Export(ctx context.Context, svc *service.Service) (*Snapshot, error) {
	snap := &Snapshot{Version: Version, ExportedAt: time.Now().UTC()}

	for offset := 0; ; offset += service.MaxExerciseLimit {
		page, _, err := svc.ListExercises(ctx, service.ExerciseQuery{Limit: service.MaxExerciseLimit, Offset: offset})
		if err != nil {
			return nil, err
		}
		snap.Exercises = append(snap.Exercises, page...)
		if len(page) < service.MaxExerciseLimit {
			break
		}
	}

	for offset := 0; ; offset += service.MaxWorkoutLimit {
		page, _, err := svc.ListWorkouts(ctx, service.MaxWorkoutLimit, offset)
		if err != nil {
			return nil, err
		}
		for _, w := range page {
			detail, err := svc.GetWorkout(ctx, w.ID)
			if err != nil {
				return nil, err
			}
			snap.Workouts = append(snap.Workouts, *detail)
		}
		if len(page) < service.MaxWorkoutLimit {
			break
		}
	}

	history, err := svc.AllHistory(ctx)
	if err != nil {
		return nil, err
	}
	snap.History = history
	return snap, nil
}

// Import writes snap into the database. Workouts keep their IDs and replace any
// existing workout with the same ID, so importing twice does not duplicate sets.
func Import(ctx context.Context, svc *service.Service, snap *Snapshot) (Result, error) {
	var res Result
	if snap.Version != Version {
		return res, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	seed := make([]core.CreateExerciseRequest, 0, len(snap.Exercises))
	for _, e := range snap.Exercises {
		seed = append(seed, core.CreateExerciseRequest{Name: e.Name, Category: e.Category, Equipment: e.Equipment, Notes: e.Notes})
	}
	n, err := svc.BulkSeedExercises(ctx, seed)
	if err != nil {
		return res, fmt.Errorf("import exercises: %w", err)
	}
	res.Exercises = n

	for _, w := range snap.Workouts {
		sets, err := importWorkout(ctx, svc, w)
		if err != nil {
			return res, fmt.Errorf("import workout %s: %w", w.ID, err)
		}
		res.Workouts++
		res.Sets += sets
	}

	entries := make([]core.HistoryRequest, 0, len(snap.History))
	for _, h := range snap.History {
		req := core.HistoryRequest{
			ID:              h.ID,
			PerformedAt:     h.PerformedAt.Format(time.RFC3339Nano),
			DurationSeconds: h.DurationSeconds,
			Notes:           h.Notes,
		}
		if h.WorkoutID != nil {
			req.WorkoutID = *h.WorkoutID
		}
		entries = append(entries, req)
	}
	backfill, err := svc.BackfillHistory(ctx, entries)
	if err != nil {
		return res, fmt.Errorf("import history: %w", err)
	}
	res.History = backfill.Inserted
	res.HistorySkipped = backfill.Skipped
	return res, nil
}

func importWorkout(ctx context.Context, svc *service.Service, w core.WorkoutDetail) (int, error) {
	req := core.UpsertWorkoutRequest{
		ID:        w.ID,
		Name:      w.Name,
		UserID:    w.UserID,
		StartTime: w.StartedAt.Format(time.RFC3339Nano),
		Source:    string(core.SourceImport),
		Exercises: make([]core.WorkoutExerciseInput, 0, len(w.Exercises)),
	}
	for _, we := range w.Exercises {
		req.Exercises = append(req.Exercises, core.WorkoutExerciseInput{
			Name:         we.Exercise.Name,
			Category:     we.Exercise.Category,
			OrderIndex:   we.OrderIndex,
			TargetSets:   we.TargetSets,
			TargetReps:   we.TargetReps,
			TargetWeight: we.TargetWeight,
		})
	}

	detail, err := svc.UpsertWorkout(ctx, req, "")
	if err != nil {
		return 0, err
	}

	byOrder := make(map[int]string, len(detail.Exercises))
	for _, we := range detail.Exercises {
		byOrder[we.OrderIndex] = we.ID
	}

	sets := 0
	for _, we := range w.Exercises {
		for _, set := range we.Sets {
			reps, weight := set.Reps, set.Weight
			_, err := svc.AddSet(ctx, byOrder[we.OrderIndex], core.SetRequest{
				Reps:        &reps,
				Weight:      &weight,
				RPE:         set.RPE,
				RestSeconds: set.RestSeconds,
				Notes:       set.Notes,
				PerformedAt: set.PerformedAt.Format(time.RFC3339Nano),
			})
			if err != nil {
				return sets, err
			}
			sets++
		}
	}
	return sets, nil
}

// WriteFile saves snap atomically
func WriteFile(path string, snap *Snapshot) error {
	return filestore.WriteJSON(path, snap)
}

func ReadFile(path string) (*Snapshot, error) {
	var snap Snapshot
	if err := filestore.ReadJSON(path, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
