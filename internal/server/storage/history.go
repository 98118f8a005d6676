package storage

import (
	"context"
	"fmt"
	"time"
)

// HistoryKey is a keyset position: rows strictly after it in (performed_at DESC, id DESC) order
type HistoryKey struct {
	PerformedAt time.Time
	ID          string
}

// HistoryFilter selects history rows; From and To are inclusive
type HistoryFilter struct {
	After *HistoryKey
	From  *time.Time
	To    *time.Time
	Limit int
}

const historyColumns = `id, workout_id, performed_at, duration_seconds, notes, created_at`

func (f HistoryFilter) rangeClause() (string, []any) {
	where := " WHERE 1=1"
	var args []any
	if f.From != nil {
		where += " AND performed_at >= ?"
		args = append(args, dbTime(*f.From))
	}
	if f.To != nil {
		where += " AND performed_at <= ?"
		args = append(args, dbTime(*f.To))
	}
	return where, args
}

// ListHistory returns up to f.Limit rows newest first. Callers ask for one more row than
// they show to learn whether another page exists.
func (s *Store) ListHistory(ctx context.Context, f HistoryFilter) ([]HistoryRecord, error) {
	where, args := f.rangeClause()
	if f.After != nil {
		at := dbTime(f.After.PerformedAt)
		where += " AND (performed_at < ? OR (performed_at = ? AND id < ?))"
		args = append(args, at, at, f.After.ID)
	}

	query := "SELECT " + historyColumns + " FROM history" + where + " ORDER BY performed_at DESC, id DESC LIMIT ?"
	rows, err := s.query(ctx, s.db, query, append(args, f.Limit)...)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryRecord
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// InsertHistory records a completed workout session
func (s *Store) InsertHistory(ctx context.Context, h *HistoryRecord) error {
	_, err := s.exec(ctx, s.db,
		`INSERT INTO history (`+historyColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		h.ID, h.WorkoutID, dbTime(h.PerformedAt), h.DurationSeconds, nullableString(h.Notes), dbTime(h.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// InsertHistoryIgnore inserts a row unless its ID already exists; it reports whether a row was written
func (s *Store) InsertHistoryIgnore(ctx context.Context, h *HistoryRecord) (bool, error) {
	result, err := s.exec(ctx, s.db,
		`INSERT INTO history (`+historyColumns+`) VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		h.ID, h.WorkoutID, dbTime(h.PerformedAt), h.DurationSeconds, nullableString(h.Notes), dbTime(h.CreatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert history: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert history: %w", err)
	}
	return n > 0, nil
}

// HistoryStats aggregates history rows within the range of f; cursor and limit are ignored
func (s *Store) HistoryStats(ctx context.Context, f HistoryFilter) (count int, total int64, err error) {
	where, args := f.rangeClause()
	err = s.queryRow(ctx, s.db,
		"SELECT COUNT(*), COALESCE(SUM(duration_seconds), 0) FROM history"+where,
		args...,
	).Scan(&count, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("history stats: %w", err)
	}
	return count, total, nil
}

// ListAllHistory returns every history row oldest first, for export
func (s *Store) ListAllHistory(ctx context.Context) ([]HistoryRecord, error) {
	rows, err := s.query(ctx, s.db, "SELECT "+historyColumns+" FROM history ORDER BY performed_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("export history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryRecord
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *h)
	}
	return entries, rows.Err()
}

func scanHistory(row rowScanner) (*HistoryRecord, error) {
	var h HistoryRecord
	var notes *string
	if err := row.Scan(&h.ID, &h.WorkoutID, &h.PerformedAt, &h.DurationSeconds, &notes, &h.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	h.Notes = derefString(notes)
	h.PerformedAt = h.PerformedAt.UTC()
	h.CreatedAt = h.CreatedAt.UTC()
	return &h, nil
}
