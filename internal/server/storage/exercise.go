package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ExerciseFilter narrows ListExercises; empty fields are ignored
type ExerciseFilter struct {
	Search   string
	Category string
	Limit    int
	Offset   int
}

const exerciseColumns = `id, name, category, equipment, notes, created_at, updated_at`

// ListExercises returns one page of matching exercises and the total match count
func (s *Store) ListExercises(ctx context.Context, f ExerciseFilter) ([]ExerciseRecord, int, error) {
	where := " WHERE 1=1"
	var args []any

	if f.Search != "" {
		where += ` AND LOWER(name) LIKE LOWER(?) ESCAPE '\'`
		args = append(args, "%"+escapeLike(f.Search)+"%")
	}
	if f.Category != "" {
		where += " AND category = ?"
		args = append(args, f.Category)
	}

	var total int
	if err := s.queryRow(ctx, s.db, "SELECT COUNT(*) FROM exercises"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count exercises: %w", err)
	}

	query := "SELECT " + exerciseColumns + " FROM exercises" + where + " ORDER BY name ASC, id ASC LIMIT ? OFFSET ?"
	rows, err := s.query(ctx, s.db, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()

	var exercises []ExerciseRecord
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, 0, err
		}
		exercises = append(exercises, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list exercises: %w", err)
	}

	return exercises, total, nil
}

// GetExercise retrieves an exercise by ID
func (s *Store) GetExercise(ctx context.Context, id string) (*ExerciseRecord, error) {
	return s.getExercise(ctx, s.db, id)
}

func (s *Store) getExercise(ctx context.Context, q querier, id string) (*ExerciseRecord, error) {
	row := s.queryRow(ctx, q, "SELECT "+exerciseColumns+" FROM exercises WHERE id = ?", id)
	e, err := scanExercise(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// CreateExercise inserts a new exercise, returning ErrConflict when the name is taken.
// The insert and the uniqueness check are a single statement.
func (s *Store) CreateExercise(ctx context.Context, e *ExerciseRecord) error {
	equipment, err := encodeEquipment(e.Equipment)
	if err != nil {
		return err
	}

	query := `INSERT INTO exercises (` + exerciseColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO NOTHING
		RETURNING id`

	var id string
	err = s.queryRow(ctx, s.db, query,
		e.ID, e.Name, e.Category, equipment, nullableString(e.Notes),
		dbTime(e.CreatedAt), dbTime(e.UpdatedAt),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create exercise: %w", err)
	}
	return nil
}

// BulkInsertExercises inserts exercises skipping existing names and returns how many were new
func (s *Store) BulkInsertExercises(ctx context.Context, exercises []ExerciseRecord) (int, error) {
	inserted := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO exercises (` + exerciseColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING`

		for _, e := range exercises {
			equipment, err := encodeEquipment(e.Equipment)
			if err != nil {
				return err
			}
			result, err := s.exec(ctx, tx, query,
				e.ID, e.Name, e.Category, equipment, nullableString(e.Notes),
				dbTime(e.CreatedAt), dbTime(e.UpdatedAt),
			)
			if err != nil {
				return fmt.Errorf("seed exercise %q: %w", e.Name, err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("seed exercise %q: %w", e.Name, err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// findOrCreateExercise resolves an exercise by case-insensitive name, creating it when absent.
// The final read-after-write select is what determines the returned ID, so a concurrent
// insert of the same name resolves to the row that won.
func (s *Store) findOrCreateExercise(ctx context.Context, q querier, name, category string, now time.Time) (string, error) {
	var id string
	err := s.queryRow(ctx, q,
		`SELECT id FROM exercises WHERE LOWER(name) = LOWER(?) ORDER BY created_at ASC, id ASC LIMIT 1`,
		name,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("lookup exercise %q: %w", name, err)
	}

	if category == "" {
		category = "other"
	}
	_, err = s.exec(ctx, q,
		`INSERT INTO exercises (`+exerciseColumns+`)
		VALUES (?, ?, ?, '[]', NULL, ?, ?)
		ON CONFLICT (name) DO NOTHING`,
		uuid.New().String(), name, category, dbTime(now), dbTime(now),
	)
	if err != nil {
		return "", fmt.Errorf("create exercise %q: %w", name, err)
	}

	if err := s.queryRow(ctx, q, `SELECT id FROM exercises WHERE name = ?`, name).Scan(&id); err != nil {
		return "", fmt.Errorf("reload exercise %q: %w", name, err)
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExercise(row rowScanner) (*ExerciseRecord, error) {
	var e ExerciseRecord
	var equipment string
	var notes *string

	err := row.Scan(&e.ID, &e.Name, &e.Category, &equipment, &notes, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan exercise: %w", err)
	}

	e.Notes = derefString(notes)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	e.Equipment, err = decodeEquipment(equipment)
	if err != nil {
		return nil, fmt.Errorf("invalid equipment for exercise %s: %w", e.ID, err)
	}
	return &e, nil
}

func encodeEquipment(equipment []string) (string, error) {
	if equipment == nil {
		equipment = []string{}
	}
	data, err := json.Marshal(equipment)
	if err != nil {
		return "", fmt.Errorf("encode equipment: %w", err)
	}
	return string(data), nil
}

func decodeEquipment(raw string) ([]string, error) {
	equipment := []string{}
	if strings.TrimSpace(raw) == "" {
		return equipment, nil
	}
	if err := json.Unmarshal([]byte(raw), &equipment); err != nil {
		return nil, err
	}
	return equipment, nil
}
