package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const setColumns = `id, workout_exercise_id, performed_at, reps, weight, rpe, rest_seconds, notes, created_at`

// InsertSet records a set against a workout exercise, returning ErrNotFound if the workout exercise is gone
func (s *Store) InsertSet(ctx context.Context, set *SetRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		err := s.queryRow(ctx, tx, "SELECT COUNT(*) FROM workout_exercises WHERE id = ?", set.WorkoutExerciseID).Scan(&n)
		if err != nil {
			return fmt.Errorf("check workout exercise: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}

		_, err = s.exec(ctx, tx,
			`INSERT INTO sets (`+setColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			set.ID, set.WorkoutExerciseID, dbTime(set.PerformedAt), set.Reps, set.Weight,
			set.RPE, set.RestSeconds, set.Notes, dbTime(set.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert set: %w", err)
		}
		return nil
	})
}

// GetSet retrieves a set by ID
func (s *Store) GetSet(ctx context.Context, id string) (*SetRecord, error) {
	set, err := scanSet(s.queryRow(ctx, s.db, "SELECT "+setColumns+" FROM sets WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return set, err
}

// UpdateSet overwrites the mutable columns of a set
func (s *Store) UpdateSet(ctx context.Context, set *SetRecord) error {
	result, err := s.exec(ctx, s.db,
		`UPDATE sets SET performed_at = ?, reps = ?, weight = ?, rpe = ?, rest_seconds = ?, notes = ? WHERE id = ?`,
		dbTime(set.PerformedAt), set.Reps, set.Weight, set.RPE, set.RestSeconds, set.Notes, set.ID,
	)
	if err != nil {
		return fmt.Errorf("update set: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update set: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSet removes a set by ID
func (s *Store) DeleteSet(ctx context.Context, id string) error {
	result, err := s.exec(ctx, s.db, "DELETE FROM sets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete set: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete set: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSetsByWorkout returns the sets of every exercise in a workout, newest first
func (s *Store) ListSetsByWorkout(ctx context.Context, workoutID string, limit, offset int) ([]SetRecord, error) {
	query := `SELECT s.id, s.workout_exercise_id, s.performed_at, s.reps, s.weight,
			s.rpe, s.rest_seconds, s.notes, s.created_at
		FROM sets s
		JOIN workout_exercises we ON we.id = s.workout_exercise_id
		WHERE we.workout_id = ?
		ORDER BY s.performed_at DESC, s.id DESC
		LIMIT ? OFFSET ?`
	return s.listSets(ctx, query, workoutID, limit, offset)
}

// ListSetsByWorkoutExercise returns the sets of one workout exercise in the order they were performed
func (s *Store) ListSetsByWorkoutExercise(ctx context.Context, workoutExerciseID string) ([]SetRecord, error) {
	query := "SELECT " + setColumns + " FROM sets WHERE workout_exercise_id = ? ORDER BY performed_at ASC, id ASC"
	return s.listSets(ctx, query, workoutExerciseID)
}

func (s *Store) listSets(ctx context.Context, query string, args ...any) ([]SetRecord, error) {
	rows, err := s.query(ctx, s.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	defer rows.Close()

	var sets []SetRecord
	for rows.Next() {
		set, err := scanSet(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, *set)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	return sets, nil
}

func scanSet(row rowScanner) (*SetRecord, error) {
	var set SetRecord
	err := row.Scan(
		&set.ID, &set.WorkoutExerciseID, &set.PerformedAt, &set.Reps, &set.Weight,
		&set.RPE, &set.RestSeconds, &set.Notes, &set.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan set: %w", err)
	}
	set.PerformedAt = set.PerformedAt.UTC()
	set.CreatedAt = set.CreatedAt.UTC()
	return &set, nil
}
