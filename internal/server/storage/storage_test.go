package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB opens a fresh SQLite store with the schema applied
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "repe.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.InitDB(context.Background()))
	return s
}

func newExercise(name, category string) *ExerciseRecord {
	now := time.Now().UTC()
	return &ExerciseRecord{
		ID:        uuid.New().String(),
		Name:      name,
		Category:  category,
		Equipment: []string{"barbell"},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newWorkout(name string, startedAt time.Time) *WorkoutRecord {
	now := time.Now().UTC()
	return &WorkoutRecord{
		Name:      name,
		StartedAt: startedAt,
		Source:    "app",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestParseDatabaseURL(t *testing.T) {
	tests := []struct {
		url     string
		driver  string
		dsn     string
		dialect Dialect
		wantErr bool
	}{
		{"postgres://u:p@localhost/repe", "pgx", "postgres://u:p@localhost/repe", DialectPostgres, false},
		{"postgresql://localhost/repe", "pgx", "postgresql://localhost/repe", DialectPostgres, false},
		{"sqlite://data/repe.db", "sqlite3", "data/repe.db", DialectSQLite, false},
		{"file:repe.db", "sqlite3", "repe.db", DialectSQLite, false},
		{"./repe.db", "sqlite3", "./repe.db", DialectSQLite, false},
		{"repe.sqlite", "sqlite3", "repe.sqlite", DialectSQLite, false},
		{"", "", "", 0, true},
		{"mysql://localhost/repe", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			driver, dsn, dialect, err := ParseDatabaseURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.driver, driver)
			assert.Equal(t, tt.dsn, dsn)
			assert.Equal(t, tt.dialect, dialect)
		})
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: DialectPostgres}
	lite := &Store{dialect: DialectSQLite}

	q := "SELECT id FROM sets WHERE reps = ? AND weight > ?"
	assert.Equal(t, "SELECT id FROM sets WHERE reps = $1 AND weight > $2", pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
}

func TestSchemaStatementsPerDialect(t *testing.T) {
	for _, stmt := range schemaStatements(DialectPostgres) {
		assert.NotContains(t, stmt, " TS ")
		assert.NotContains(t, stmt, "DATETIME")
	}
	joined := ""
	for _, stmt := range schemaStatements(DialectSQLite) {
		joined += stmt
	}
	assert.Contains(t, joined, "DATETIME")
	assert.Contains(t, joined, "REAL")
}

func TestInitDBIdempotent(t *testing.T) {
	s := setupTestDB(t)
	require.NoError(t, s.InitDB(context.Background()))
	assert.True(t, s.IsHealthy())
	require.NoError(t, s.Ping(context.Background()))
}

func TestCreateExerciseConflict(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.CreateExercise(ctx, newExercise("Deadlift", "pull")))

	err := s.CreateExercise(ctx, newExercise("Deadlift", "legs"))
	assert.ErrorIs(t, err, ErrConflict)

	_, total, err := s.ListExercises(ctx, ExerciseFilter{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestListExercisesFilterAndTotal(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	for _, e := range []struct{ name, category string }{
		{"Back Squat", "legs"},
		{"Front Squat", "legs"},
		{"Bench Press", "push"},
		{"Split Squat", "legs"},
		{"Overhead Squat 100%", "olympic"},
	} {
		require.NoError(t, s.CreateExercise(ctx, newExercise(e.name, e.category)))
	}

	page, total, err := s.ListExercises(ctx, ExerciseFilter{Search: "squat", Category: "legs", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)
	for _, e := range page {
		assert.Contains(t, e.Name, "Squat")
		assert.Equal(t, "legs", e.Category)
		assert.Equal(t, []string{"barbell"}, e.Equipment)
	}

	rest, total, err := s.ListExercises(ctx, ExerciseFilter{Search: "squat", Category: "legs", Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, rest, 1)

	// LIKE metacharacters match literally
	pct, total, err := s.ListExercises(ctx, ExerciseFilter{Search: "%", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, pct, 1)
	assert.Equal(t, "Overhead Squat 100%", pct[0].Name)
}

func TestBulkInsertExercisesSkipsExisting(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.CreateExercise(ctx, newExercise("Row", "pull")))

	n, err := s.BulkInsertExercises(ctx, []ExerciseRecord{
		*newExercise("Row", "pull"),
		*newExercise("Dip", "push"),
		*newExercise("Plank", "core"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.BulkInsertExercises(ctx, []ExerciseRecord{*newExercise("Dip", "push")})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestUpsertWorkoutReplacesExercises(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	bench := newExercise("Bench Press", "push")
	require.NoError(t, s.CreateExercise(ctx, bench))

	w := newWorkout("Push Day", time.Now())
	require.NoError(t, s.UpsertWorkout(ctx, w, []WorkoutItem{
		{ExerciseID: bench.ID, OrderIndex: 0},
		{Name: "bench press", OrderIndex: 1},
		{Name: "Cable Fly", Category: "push", OrderIndex: 2},
	}))
	require.NotEmpty(t, w.ID)

	items, err := s.ListWorkoutExercises(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, bench.ID, items[0].ExerciseID)
	assert.Equal(t, bench.ID, items[1].ExerciseID, "name lookup is case-insensitive")
	assert.Equal(t, "Cable Fly", items[2].Exercise.Name)

	w.Name = "Push Day v2"
	require.NoError(t, s.UpsertWorkout(ctx, w, []WorkoutItem{{Name: "Cable Fly", OrderIndex: 0}}))

	items, err = s.ListWorkoutExercises(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Cable Fly", items[0].Exercise.Name)

	got, err := s.GetWorkout(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Push Day v2", got.Name)
}

func TestUpsertWorkoutUnknownIDInserts(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	w := newWorkout("Imported", time.Now())
	w.ID = uuid.New().String()
	w.Source = "import"
	require.NoError(t, s.UpsertWorkout(ctx, w, nil))

	got, err := s.GetWorkout(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "import", got.Source)
}

func TestUpsertWorkoutRollsBack(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	w := newWorkout("Broken", time.Now())
	err := s.UpsertWorkout(ctx, w, []WorkoutItem{
		{Name: "Lunge", OrderIndex: 0},
		{ExerciseID: uuid.New().String(), OrderIndex: 1},
	})
	assert.ErrorIs(t, err, ErrUnknownExercise)

	_, err = s.GetWorkout(ctx, w.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, total, err := s.ListExercises(ctx, ExerciseFilter{Limit: 50})
	require.NoError(t, err)
	assert.Zero(t, total, "created exercise rolled back with the workout")
}

func TestAddWorkoutExerciseOrdering(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	w := newWorkout("Pull", time.Now())
	require.NoError(t, s.UpsertWorkout(ctx, w, []WorkoutItem{{Name: "Row", OrderIndex: 3}}))

	require.NoError(t, s.AddWorkoutExercise(ctx, w.ID, WorkoutItem{Name: "Curl"}, nil, time.Now()))

	taken := 3
	err := s.AddWorkoutExercise(ctx, w.ID, WorkoutItem{Name: "Shrug"}, &taken, time.Now())
	assert.ErrorIs(t, err, ErrConflict)

	err = s.AddWorkoutExercise(ctx, uuid.New().String(), WorkoutItem{Name: "Shrug"}, nil, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)

	items, err := s.ListWorkoutExercises(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 4, items[1].OrderIndex)
	assert.Equal(t, "Curl", items[1].Exercise.Name)
}

func TestSetsCascadeAndHistorySurvivesDelete(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	w := newWorkout("Legs", time.Now())
	require.NoError(t, s.UpsertWorkout(ctx, w, []WorkoutItem{{Name: "Squat", OrderIndex: 0}}))
	items, err := s.ListWorkoutExercises(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	set := &SetRecord{
		ID:                uuid.New().String(),
		WorkoutExerciseID: items[0].ID,
		PerformedAt:       time.Now(),
		Reps:              5,
		Weight:            100,
		CreatedAt:         time.Now(),
	}
	require.NoError(t, s.InsertSet(ctx, set))

	workoutID := w.ID
	h := &HistoryRecord{
		ID:              uuid.New().String(),
		WorkoutID:       &workoutID,
		PerformedAt:     time.Now(),
		DurationSeconds: 1800,
		CreatedAt:       time.Now(),
	}
	require.NoError(t, s.InsertHistory(ctx, h))

	require.NoError(t, s.DeleteWorkout(ctx, w.ID))
	assert.ErrorIs(t, s.DeleteWorkout(ctx, w.ID), ErrNotFound)

	_, err = s.GetSet(ctx, set.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := s.ListHistory(ctx, HistoryFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].WorkoutID)
}

func TestInsertSetMissingWorkoutExercise(t *testing.T) {
	s := setupTestDB(t)

	err := s.InsertSet(context.Background(), &SetRecord{
		ID:                uuid.New().String(),
		WorkoutExerciseID: uuid.New().String(),
		PerformedAt:       time.Now(),
		CreatedAt:         time.Now(),
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListHistoryKeysetWithTies(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	tied := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	var want []string
	for i := 0; i < 5; i++ {
		h := &HistoryRecord{
			ID:              uuid.New().String(),
			PerformedAt:     tied,
			DurationSeconds: 60 * i,
			CreatedAt:       time.Now(),
		}
		require.NoError(t, s.InsertHistory(ctx, h))
		want = append(want, h.ID)
	}
	older := &HistoryRecord{ID: uuid.New().String(), PerformedAt: tied.Add(-time.Hour), CreatedAt: time.Now()}
	require.NoError(t, s.InsertHistory(ctx, older))

	var seen []string
	var after *HistoryKey
	for {
		page, err := s.ListHistory(ctx, HistoryFilter{After: after, Limit: 2})
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, h := range page {
			seen = append(seen, h.ID)
		}
		last := page[len(page)-1]
		after = &HistoryKey{PerformedAt: last.PerformedAt, ID: last.ID}
	}

	require.Len(t, seen, 6)
	assert.Equal(t, older.ID, seen[5])
	assert.ElementsMatch(t, want, seen[:5])
	for i := 1; i < 5; i++ {
		assert.Greater(t, seen[i-1], seen[i], "ties ordered by id descending")
	}
}

func TestHistoryRangeAndStats(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, s.InsertHistory(ctx, &HistoryRecord{
			ID:              uuid.New().String(),
			PerformedAt:     base.AddDate(0, 0, i),
			DurationSeconds: 600,
			CreatedAt:       time.Now(),
		}))
	}

	from := base.AddDate(0, 0, 1)
	to := base.AddDate(0, 0, 2)
	entries, err := s.ListHistory(ctx, HistoryFilter{From: &from, To: &to, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	count, total, err := s.HistoryStats(ctx, HistoryFilter{From: &from})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.EqualValues(t, 1800, total)
}

func TestInsertHistoryIgnoreDuplicate(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	h := &HistoryRecord{ID: uuid.New().String(), PerformedAt: time.Now(), CreatedAt: time.Now()}
	ok, err := s.InsertHistoryIgnore(ctx, h)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.InsertHistoryIgnore(ctx, h)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveUserSettingsFindOrCreate(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	_, err := s.GetUserSettings(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)

	now := time.Now().UTC()
	first := &UserSettingsRecord{ID: uuid.New().String(), Units: "metric", PreferencesJSON: `{}`, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.SaveUserSettings(ctx, first))

	second := &UserSettingsRecord{ID: uuid.New().String(), Units: "imperial", PreferencesJSON: `{"theme":"dark"}`, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.SaveUserSettings(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	got, err := s.GetUserSettings(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "imperial", got.Units)
	assert.JSONEq(t, `{"theme":"dark"}`, got.PreferencesJSON)
}

func TestResetDB(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.CreateExercise(ctx, newExercise("Row", "pull")))
	require.NoError(t, s.ResetDB(ctx))

	_, total, err := s.ListExercises(ctx, ExerciseFilter{Limit: 50})
	require.NoError(t, err)
	assert.Zero(t, total)
}
