package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WorkoutItem is one exercise slot of an upserted workout. Either ExerciseID or Name is set.
type WorkoutItem struct {
	ExerciseID   string
	Name         string
	Category     string
	OrderIndex   int
	TargetSets   *int
	TargetReps   *int
	TargetWeight *float64
}

// ErrUnknownExercise is returned when a WorkoutItem names an exercise ID that does not exist
var ErrUnknownExercise = errors.New("exercise does not exist")

const workoutColumns = `id, name, user_id, started_at, source, created_at, updated_at`

// ListWorkouts returns one page of workouts newest first and the total count
func (s *Store) ListWorkouts(ctx context.Context, limit, offset int) ([]WorkoutRecord, int, error) {
	var total int
	if err := s.queryRow(ctx, s.db, "SELECT COUNT(*) FROM workouts").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count workouts: %w", err)
	}

	rows, err := s.query(ctx, s.db,
		"SELECT "+workoutColumns+" FROM workouts ORDER BY started_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list workouts: %w", err)
	}
	defer rows.Close()

	var workouts []WorkoutRecord
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, 0, err
		}
		workouts = append(workouts, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list workouts: %w", err)
	}
	return workouts, total, nil
}

// GetWorkout retrieves a workout row by ID
func (s *Store) GetWorkout(ctx context.Context, id string) (*WorkoutRecord, error) {
	w, err := scanWorkout(s.queryRow(ctx, s.db, "SELECT "+workoutColumns+" FROM workouts WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return w, err
}

// WorkoutExists reports whether a workout row exists
func (s *Store) WorkoutExists(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.queryRow(ctx, s.db, "SELECT COUNT(*) FROM workouts WHERE id = ?", id).Scan(&n); err != nil {
		return false, fmt.Errorf("check workout: %w", err)
	}
	return n > 0, nil
}

// ListWorkoutExercises returns the exercises of a workout in order, joined with their exercise rows
func (s *Store) ListWorkoutExercises(ctx context.Context, workoutID string) ([]WorkoutExerciseRecord, error) {
	query := `SELECT we.id, we.workout_id, we.exercise_id, we.order_index,
			we.target_sets, we.target_reps, we.target_weight,
			e.id, e.name, e.category, e.equipment, e.notes, e.created_at, e.updated_at
		FROM workout_exercises we
		JOIN exercises e ON e.id = we.exercise_id
		WHERE we.workout_id = ?
		ORDER BY we.order_index ASC`

	rows, err := s.query(ctx, s.db, query, workoutID)
	if err != nil {
		return nil, fmt.Errorf("list workout exercises: %w", err)
	}
	defer rows.Close()

	var items []WorkoutExerciseRecord
	for rows.Next() {
		var we WorkoutExerciseRecord
		var equipment string
		var notes *string
		err := rows.Scan(
			&we.ID, &we.WorkoutID, &we.ExerciseID, &we.OrderIndex,
			&we.TargetSets, &we.TargetReps, &we.TargetWeight,
			&we.Exercise.ID, &we.Exercise.Name, &we.Exercise.Category, &equipment, &notes,
			&we.Exercise.CreatedAt, &we.Exercise.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan workout exercise: %w", err)
		}
		we.Exercise.Notes = derefString(notes)
		we.Exercise.CreatedAt = we.Exercise.CreatedAt.UTC()
		we.Exercise.UpdatedAt = we.Exercise.UpdatedAt.UTC()
		if we.Exercise.Equipment, err = decodeEquipment(equipment); err != nil {
			return nil, fmt.Errorf("invalid equipment for exercise %s: %w", we.ExerciseID, err)
		}
		items = append(items, we)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list workout exercises: %w", err)
	}
	return items, nil
}

// UpsertWorkout writes a workout and replaces its exercise list in one transaction.
// An ID that matches no row is inserted with that ID. Exercises are resolved by ID,
// then by case-insensitive name, then created.
func (s *Store) UpsertWorkout(ctx context.Context, w *WorkoutRecord, items []WorkoutItem) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	now := dbTime(w.UpdatedAt)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := s.exec(ctx, tx,
			`UPDATE workouts SET name = ?, user_id = ?, started_at = ?, source = ?, updated_at = ? WHERE id = ?`,
			w.Name, nullableString(w.UserID), dbTime(w.StartedAt), w.Source, now, w.ID,
		)
		if err != nil {
			return fmt.Errorf("update workout: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("update workout: %w", err)
		}

		if n == 0 {
			_, err = s.exec(ctx, tx,
				`INSERT INTO workouts (`+workoutColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				w.ID, w.Name, nullableString(w.UserID), dbTime(w.StartedAt), w.Source,
				dbTime(w.CreatedAt), now,
			)
			if err != nil {
				return fmt.Errorf("insert workout: %w", err)
			}
		}

		if _, err := s.exec(ctx, tx, `DELETE FROM workout_exercises WHERE workout_id = ?`, w.ID); err != nil {
			return fmt.Errorf("clear workout exercises: %w", err)
		}

		for _, item := range items {
			if err := s.insertWorkoutExercise(ctx, tx, w.ID, item, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddWorkoutExercise appends one exercise to a workout. A nil orderIndex takes the next free slot;
// an occupied one returns ErrConflict.
func (s *Store) AddWorkoutExercise(ctx context.Context, workoutID string, item WorkoutItem, orderIndex *int, now time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := s.queryRow(ctx, tx, "SELECT COUNT(*) FROM workouts WHERE id = ?", workoutID).Scan(&n); err != nil {
			return fmt.Errorf("check workout: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}

		if orderIndex == nil {
			var next int
			err := s.queryRow(ctx, tx,
				"SELECT COALESCE(MAX(order_index) + 1, 0) FROM workout_exercises WHERE workout_id = ?",
				workoutID,
			).Scan(&next)
			if err != nil {
				return fmt.Errorf("next order index: %w", err)
			}
			item.OrderIndex = next
		} else {
			var taken int
			err := s.queryRow(ctx, tx,
				"SELECT COUNT(*) FROM workout_exercises WHERE workout_id = ? AND order_index = ?",
				workoutID, *orderIndex,
			).Scan(&taken)
			if err != nil {
				return fmt.Errorf("check order index: %w", err)
			}
			if taken > 0 {
				return ErrConflict
			}
			item.OrderIndex = *orderIndex
		}

		if err := s.insertWorkoutExercise(ctx, tx, workoutID, item, now); err != nil {
			return err
		}
		_, err := s.exec(ctx, tx, "UPDATE workouts SET updated_at = ? WHERE id = ?", dbTime(now), workoutID)
		if err != nil {
			return fmt.Errorf("touch workout: %w", err)
		}
		return nil
	})
}

func (s *Store) insertWorkoutExercise(ctx context.Context, tx *sql.Tx, workoutID string, item WorkoutItem, now time.Time) error {
	exerciseID := item.ExerciseID
	if exerciseID != "" {
		var n int
		if err := s.queryRow(ctx, tx, "SELECT COUNT(*) FROM exercises WHERE id = ?", exerciseID).Scan(&n); err != nil {
			return fmt.Errorf("check exercise: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrUnknownExercise, exerciseID)
		}
	} else {
		var err error
		exerciseID, err = s.findOrCreateExercise(ctx, tx, item.Name, item.Category, now)
		if err != nil {
			return err
		}
	}

	_, err := s.exec(ctx, tx,
		`INSERT INTO workout_exercises (id, workout_id, exercise_id, order_index, target_sets, target_reps, target_weight)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), workoutID, exerciseID, item.OrderIndex,
		item.TargetSets, item.TargetReps, item.TargetWeight,
	)
	if err != nil {
		return fmt.Errorf("insert workout exercise: %w", err)
	}
	return nil
}

// DeleteWorkout removes a workout; exercises and sets cascade, history keeps its rows unlinked
func (s *Store) DeleteWorkout(ctx context.Context, id string) error {
	result, err := s.exec(ctx, s.db, "DELETE FROM workouts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete workout: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete workout: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanWorkout(row rowScanner) (*WorkoutRecord, error) {
	var w WorkoutRecord
	var userID *string
	err := row.Scan(&w.ID, &w.Name, &userID, &w.StartedAt, &w.Source, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan workout: %w", err)
	}
	w.UserID = derefString(userID)
	w.StartedAt = w.StartedAt.UTC()
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return &w, nil
}
