package service

import (
	"context"
	"log"
	"strings"

	"repe/internal/server/core"
	"repe/internal/server/storage"

	"github.com/google/uuid"
)

// HistoryQuery holds list parameters for ListHistory; times are RFC3339 strings as received
type HistoryQuery struct {
	Cursor string
	Limit  int
	From   string
	To     string
}

// ListHistory returns one keyset page of history, newest first
func (s *Service) ListHistory(ctx context.Context, q HistoryQuery) (*core.HistoryPage, error) {
	limit := clampLimit(q.Limit, DefaultHistoryLimit, MaxHistoryLimit)

	filter, err := historyRange(q.From, q.To)
	if err != nil {
		return nil, err
	}
	filter.Limit = limit + 1

	if strings.TrimSpace(q.Cursor) != "" {
		c, err := core.DecodeCursor(q.Cursor)
		if err != nil {
			return nil, err
		}
		filter.After = &storage.HistoryKey{PerformedAt: c.PerformedAt, ID: c.ID}
	}

	records, err := s.store.ListHistory(ctx, filter)
	if err != nil {
		return nil, translate(err, "history", "")
	}

	page := &core.HistoryPage{Data: make([]core.HistoryEntry, 0, limit)}
	if len(records) > limit {
		page.HasMore = true
		records = records[:limit]
	}
	for i := range records {
		page.Data = append(page.Data, toHistoryEntry(&records[i]))
	}
	if page.HasMore {
		last := records[len(records)-1]
		page.Cursor = core.EncodeCursor(core.Cursor{PerformedAt: last.PerformedAt, ID: last.ID})
	}
	return page, nil
}

// CreateHistory records a completed session
func (s *Service) CreateHistory(ctx context.Context, req core.HistoryRequest) (*core.HistoryEntry, error) {
	record, err := s.historyRecord(req)
	if err != nil {
		return nil, err
	}

	if record.WorkoutID != nil {
		exists, err := s.store.WorkoutExists(ctx, *record.WorkoutID)
		if err != nil {
			return nil, translate(err, "workout", *record.WorkoutID)
		}
		if !exists {
			return nil, core.Validation("workoutId %s does not reference an existing workout", *record.WorkoutID)
		}
	}

	inserted, err := s.store.InsertHistoryIgnore(ctx, record)
	if err != nil {
		return nil, translate(err, "history", record.ID)
	}
	if !inserted {
		return nil, core.Conflict("history entry %s already exists", record.ID)
	}

	entry := toHistoryEntry(record)
	return &entry, nil
}

// BackfillHistory inserts entries one by one, skipping existing IDs. A failing entry is
// logged and counted as skipped; it never aborts the batch.
func (s *Service) BackfillHistory(ctx context.Context, entries []core.HistoryRequest) (core.BackfillResult, error) {
	var result core.BackfillResult
	for i, req := range entries {
		if err := ctx.Err(); err != nil {
			return result, core.Internal("backfill interrupted", err)
		}

		record, err := s.historyRecord(req)
		if err != nil {
			log.Printf("backfill: skipping entry %d: %v", i, err)
			result.Skipped++
			continue
		}

		inserted, err := s.store.InsertHistoryIgnore(ctx, record)
		if err != nil {
			log.Printf("backfill: skipping entry %d (%s): %v", i, record.ID, err)
			result.Skipped++
			continue
		}
		if inserted {
			result.Inserted++
		} else {
			result.Skipped++
		}
	}
	return result, nil
}

// HistoryStats aggregates history within an optional inclusive range
func (s *Service) HistoryStats(ctx context.Context, from, to string) (*core.HistoryStats, error) {
	filter, err := historyRange(from, to)
	if err != nil {
		return nil, err
	}

	count, total, err := s.store.HistoryStats(ctx, filter)
	if err != nil {
		return nil, translate(err, "history", "")
	}

	stats := &core.HistoryStats{Count: count, TotalDurationSeconds: total}
	if count > 0 {
		stats.AverageDurationSeconds = float64(total) / float64(count)
	}
	return stats, nil
}

// AllHistory returns every history entry oldest first
func (s *Service) AllHistory(ctx context.Context) ([]core.HistoryEntry, error) {
	records, err := s.store.ListAllHistory(ctx)
	if err != nil {
		return nil, translate(err, "history", "")
	}
	entries := make([]core.HistoryEntry, 0, len(records))
	for i := range records {
		entries = append(entries, toHistoryEntry(&records[i]))
	}
	return entries, nil
}

func (s *Service) historyRecord(req core.HistoryRequest) (*storage.HistoryRecord, error) {
	if err := core.ValidateStruct(&req); err != nil {
		return nil, err
	}
	if req.DurationSeconds < 0 {
		return nil, core.Validation("durationSeconds must be at least 0")
	}
	performedAt, err := parseTimestamp("performedAt", req.PerformedAt)
	if err != nil {
		return nil, err
	}

	record := &storage.HistoryRecord{
		ID:              req.ID,
		PerformedAt:     performedAt,
		DurationSeconds: req.DurationSeconds,
		Notes:           strings.TrimSpace(req.Notes),
		CreatedAt:       s.now(),
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if req.WorkoutID != "" {
		workoutID := req.WorkoutID
		record.WorkoutID = &workoutID
	}
	return record, nil
}

func historyRange(from, to string) (storage.HistoryFilter, error) {
	var filter storage.HistoryFilter
	if from != "" {
		t, err := parseTimestamp("from", from)
		if err != nil {
			return filter, err
		}
		filter.From = &t
	}
	if to != "" {
		t, err := parseTimestamp("to", to)
		if err != nil {
			return filter, err
		}
		filter.To = &t
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return filter, core.Validation("from must not be after to")
	}
	return filter, nil
}

func toHistoryEntry(r *storage.HistoryRecord) core.HistoryEntry {
	return core.HistoryEntry{
		ID:              r.ID,
		WorkoutID:       r.WorkoutID,
		PerformedAt:     r.PerformedAt,
		DurationSeconds: r.DurationSeconds,
		Notes:           r.Notes,
		CreatedAt:       r.CreatedAt,
	}
}
