package service

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"repe/internal/server/core"
	"repe/internal/server/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) *Service {
	t.Helper()

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "repe.db"), false)
	require.NoError(t, err)
	require.NoError(t, store.InitDB(context.Background()))

	svc := New(store, []byte("test-secret-minimum-32-characters-long"))
	t.Cleanup(func() { _ = svc.Shutdown() })
	return svc
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func legDay(t *testing.T, svc *Service) *core.WorkoutDetail {
	t.Helper()
	w, err := svc.UpsertWorkout(context.Background(), core.UpsertWorkoutRequest{
		Name:      "Leg Day",
		StartTime: "2025-02-01T09:00:00Z",
		Exercises: []core.WorkoutExerciseInput{
			{Name: "Back Squat", Category: "legs", OrderIndex: 0, TargetSets: intPtr(5)},
			{Name: "Romanian Deadlift", Category: "legs", OrderIndex: 1},
		},
	}, "")
	require.NoError(t, err)
	return w
}

func TestListExercisesFilterAndClamp(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := svc.CreateExercise(ctx, core.CreateExerciseRequest{
			Name:     fmt.Sprintf("Curl Variant %d", i),
			Category: "arms",
		})
		require.NoError(t, err)
	}
	_, err := svc.CreateExercise(ctx, core.CreateExerciseRequest{Name: "Hammer Curl", Category: "forearms"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		query     ExerciseQuery
		wantLen   int
		wantTotal int
		wantLimit int
	}{
		{"default limit", ExerciseQuery{}, 8, 8, DefaultExerciseLimit},
		{"search and category", ExerciseQuery{Search: "CURL", Category: "arms", Limit: 3}, 3, 7, 3},
		{"limit over max", ExerciseQuery{Limit: 1000}, 8, 8, MaxExerciseLimit},
		{"negative offset", ExerciseQuery{Offset: -5, Limit: 2}, 2, 8, 2},
		{"offset past end", ExerciseQuery{Offset: 20}, 0, 8, DefaultExerciseLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, page, err := svc.ListExercises(ctx, tt.query)
			require.NoError(t, err)
			assert.Len(t, list, tt.wantLen)
			assert.Equal(t, tt.wantTotal, page.Total)
			assert.Equal(t, tt.wantLimit, page.Limit)
			assert.GreaterOrEqual(t, page.Offset, 0)
			assert.NotNil(t, list)
		})
	}
}

func TestCreateExerciseValidationAndConflict(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.CreateExercise(ctx, core.CreateExerciseRequest{Name: "   ", Category: "legs"})
	assert.Equal(t, core.ErrValidation, core.CodeOf(err))

	e, err := svc.CreateExercise(ctx, core.CreateExerciseRequest{Name: "  Leg Press ", Category: "legs"})
	require.NoError(t, err)
	assert.Equal(t, "Leg Press", e.Name)
	assert.Equal(t, []string{}, e.Equipment)

	_, err = svc.CreateExercise(ctx, core.CreateExerciseRequest{Name: "Leg Press", Category: "legs"})
	assert.Equal(t, core.ErrConflict, core.CodeOf(err))

	got, err := svc.GetExercise(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)

	_, err = svc.GetExercise(ctx, uuid.New().String())
	assert.Equal(t, core.ErrNotFound, core.CodeOf(err))
}

func TestBulkSeedExercises(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	seed := []core.CreateExerciseRequest{
		{Name: "Pull Up", Category: "back"},
		{Name: "Push Up", Category: "chest"},
	}
	n, err := svc.BulkSeedExercises(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = svc.BulkSeedExercises(ctx, seed)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpsertWorkoutReplacesNotAccumulates(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	w := legDay(t, svc)
	require.Len(t, w.Exercises, 2)
	assert.Equal(t, "Back Squat", w.Exercises[0].Exercise.Name)
	assert.Equal(t, time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC), w.StartedAt)

	updated, err := svc.UpsertWorkout(ctx, core.UpsertWorkoutRequest{
		ID:   w.ID,
		Name: "Leg Day",
		Exercises: []core.WorkoutExerciseInput{
			{Name: "back squat", OrderIndex: 0},
		},
	}, "")
	require.NoError(t, err)
	require.Len(t, updated.Exercises, 1)
	assert.Equal(t, w.Exercises[0].Exercise.ID, updated.Exercises[0].Exercise.ID)
	assert.Equal(t, w.StartedAt, updated.StartedAt, "startedAt kept when omitted on update")
	assert.Equal(t, w.CreatedAt, updated.CreatedAt)

	list, page, err := svc.ListWorkouts(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Exercises, 1)

	exercises, _, err := svc.ListExercises(ctx, ExerciseQuery{})
	require.NoError(t, err)
	assert.Len(t, exercises, 2, "exercises are never deleted by replacement")
}

func TestUpsertWorkoutValidation(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  core.UpsertWorkoutRequest
	}{
		{"blank name", core.UpsertWorkoutRequest{Name: "  ", Exercises: []core.WorkoutExerciseInput{}}},
		{"missing exercises", core.UpsertWorkoutRequest{Name: "A"}},
		{"bad start time", core.UpsertWorkoutRequest{Name: "A", StartTime: "yesterday", Exercises: []core.WorkoutExerciseInput{}}},
		{"duplicate order", core.UpsertWorkoutRequest{Name: "A", Exercises: []core.WorkoutExerciseInput{
			{Name: "X", OrderIndex: 1}, {Name: "Y", OrderIndex: 1},
		}}},
		{"negative order", core.UpsertWorkoutRequest{Name: "A", Exercises: []core.WorkoutExerciseInput{{Name: "X", OrderIndex: -1}}}},
		{"no exercise reference", core.UpsertWorkoutRequest{Name: "A", Exercises: []core.WorkoutExerciseInput{{OrderIndex: 0}}}},
		{"unknown exercise id", core.UpsertWorkoutRequest{Name: "A", Exercises: []core.WorkoutExerciseInput{
			{ExerciseID: uuid.New().String(), OrderIndex: 0},
		}}},
		{"bad source", core.UpsertWorkoutRequest{Name: "A", Source: "web", Exercises: []core.WorkoutExerciseInput{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpsertWorkout(ctx, tt.req, "")
			assert.Equal(t, core.ErrValidation, core.CodeOf(err), "got %v", err)
		})
	}

	list, _, err := svc.ListWorkouts(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpsertWorkoutDefaultsAndIdentity(t *testing.T) {
	svc := setupService(t)
	fixed := time.Date(2025, 5, 5, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	w, err := svc.UpsertWorkout(context.Background(), core.UpsertWorkoutRequest{
		Name:      "Quick",
		Exercises: []core.WorkoutExerciseInput{},
	}, "user-42")
	require.NoError(t, err)
	assert.Equal(t, fixed, w.StartedAt)
	assert.Equal(t, "app", w.Source)
	assert.Equal(t, "user-42", w.UserID)
	assert.Empty(t, w.Exercises)
	assert.Zero(t, w.Totals.Sets)
}

func TestSetsTotalsAndRanges(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	w := legDay(t, svc)
	squatID := w.Exercises[0].ID

	_, err := svc.AddSet(ctx, squatID, core.SetRequest{Reps: intPtr(5), Weight: floatPtr(100), RPE: floatPtr(8)})
	require.NoError(t, err)
	_, err = svc.AddSet(ctx, squatID, core.SetRequest{Reps: intPtr(3), Weight: floatPtr(110), RPE: floatPtr(9)})
	require.NoError(t, err)
	last, err := svc.AddSet(ctx, w.Exercises[1].ID, core.SetRequest{Reps: intPtr(8), Weight: floatPtr(60)})
	require.NoError(t, err)

	invalid := []core.SetRequest{
		{Reps: intPtr(-1), Weight: floatPtr(10)},
		{Reps: intPtr(1), Weight: floatPtr(-10)},
		{Reps: intPtr(1), Weight: floatPtr(10), RPE: floatPtr(10.5)},
		{Reps: intPtr(1), Weight: floatPtr(10), RestSeconds: intPtr(-30)},
		{Weight: floatPtr(10)},
		{Reps: intPtr(1), Weight: floatPtr(10), PerformedAt: "not-a-time"},
	}
	for i, req := range invalid {
		_, err := svc.AddSet(ctx, squatID, req)
		assert.Equal(t, core.ErrValidation, core.CodeOf(err), "case %d", i)
	}

	_, err = svc.UpdateSet(ctx, "", last.ID, core.UpdateSetRequest{RPE: floatPtr(11)})
	assert.Equal(t, core.ErrValidation, core.CodeOf(err))

	detail, err := svc.GetWorkout(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, detail.Totals.Sets, "rejected sets were not written")
	assert.Equal(t, 16, detail.Totals.Reps)
	assert.InDelta(t, 5*100+3*110+8*60, detail.Totals.Volume, 0.001)
	require.NotNil(t, detail.Totals.AverageRPE)
	assert.InDelta(t, 8.5, *detail.Totals.AverageRPE, 0.001)
	assert.Len(t, detail.Exercises[0].Sets, 2)

	updated, err := svc.UpdateSet(ctx, "", last.ID, core.UpdateSetRequest{Reps: intPtr(10)})
	require.NoError(t, err)
	assert.Equal(t, 10, updated.Reps)
	assert.Equal(t, 60.0, updated.Weight, "unset fields keep stored values")

	sets, err := svc.ListSetsByWorkout(ctx, w.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, sets, 3)

	assert.Equal(t, core.ErrNotFound, core.CodeOf(svc.DeleteSet(ctx, squatID, last.ID)), "set belongs to another exercise")
	require.NoError(t, svc.DeleteSet(ctx, w.Exercises[1].ID, last.ID))
	assert.Equal(t, core.ErrNotFound, core.CodeOf(svc.DeleteSet(ctx, "", last.ID)))

	_, err = svc.UpdateSet(ctx, "", uuid.NewString(), core.UpdateSetRequest{Reps: intPtr(1)})
	assert.Equal(t, core.ErrNotFound, core.CodeOf(err))
	_, err = svc.UpdateSet(ctx, squatID, uuid.NewString(), core.UpdateSetRequest{Reps: intPtr(1)})
	assert.Equal(t, core.ErrNotFound, core.CodeOf(err))

	_, err = svc.AddSet(ctx, uuid.New().String(), core.SetRequest{Reps: intPtr(1), Weight: floatPtr(1)})
	assert.Equal(t, core.ErrNotFound, core.CodeOf(err))
}

func TestAddWorkoutExercise(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	w := legDay(t, svc)
	detail, err := svc.AddWorkoutExercise(ctx, w.ID, core.AddWorkoutExerciseRequest{Name: "Calf Raise"})
	require.NoError(t, err)
	require.Len(t, detail.Exercises, 3)
	assert.Equal(t, 2, detail.Exercises[2].OrderIndex)

	_, err = svc.AddWorkoutExercise(ctx, w.ID, core.AddWorkoutExerciseRequest{Name: "Lunge", OrderIndex: intPtr(0)})
	assert.Equal(t, core.ErrConflict, core.CodeOf(err))

	_, err = svc.AddWorkoutExercise(ctx, w.ID, core.AddWorkoutExerciseRequest{})
	assert.Equal(t, core.ErrValidation, core.CodeOf(err))

	_, err = svc.AddWorkoutExercise(ctx, uuid.New().String(), core.AddWorkoutExerciseRequest{Name: "Lunge"})
	assert.Equal(t, core.ErrNotFound, core.CodeOf(err))
}

func TestDeleteWorkoutKeepsHistory(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	w := legDay(t, svc)
	_, err := svc.CreateHistory(ctx, core.HistoryRequest{
		WorkoutID:       w.ID,
		PerformedAt:     "2025-02-01T10:00:00Z",
		DurationSeconds: 3600,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteWorkout(ctx, w.ID))
	assert.Equal(t, core.ErrNotFound, core.CodeOf(svc.DeleteWorkout(ctx, w.ID)))
	assert.Equal(t, core.ErrNotFound, core.CodeOf(svc.DeleteWorkout(ctx, "not-a-uuid")))

	_, err = svc.GetWorkout(ctx, w.ID)
	assert.Equal(t, core.ErrNotFound, core.CodeOf(err))

	page, err := svc.ListHistory(ctx, HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Nil(t, page.Data[0].WorkoutID)
}

func TestHistoryKeysetRoundTrip(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	// Seven entries, four sharing one timestamp
	stamps := []string{
		"2025-03-01T08:00:00Z", "2025-03-01T08:00:00Z", "2025-03-01T08:00:00Z", "2025-03-01T08:00:00Z",
		"2025-03-02T08:00:00Z", "2025-02-28T08:00:00Z", "2025-03-03T08:00:00.123456Z",
	}
	for _, ts := range stamps {
		_, err := svc.CreateHistory(ctx, core.HistoryRequest{PerformedAt: ts, DurationSeconds: 60})
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	var ordered []core.HistoryEntry
	cursor := ""
	for pages := 0; pages < 10; pages++ {
		page, err := svc.ListHistory(ctx, HistoryQuery{Cursor: cursor, Limit: 3})
		require.NoError(t, err)
		for _, e := range page.Data {
			assert.False(t, seen[e.ID], "entry %s returned twice", e.ID)
			seen[e.ID] = true
			ordered = append(ordered, e)
		}
		if !page.HasMore {
			assert.Empty(t, page.Cursor)
			break
		}
		require.NotEmpty(t, page.Cursor)
		cursor = page.Cursor
	}

	require.Len(t, ordered, len(stamps))
	for i := 1; i < len(ordered); i++ {
		prev, cur := ordered[i-1], ordered[i]
		ok := prev.PerformedAt.After(cur.PerformedAt) ||
			(prev.PerformedAt.Equal(cur.PerformedAt) && prev.ID > cur.ID)
		assert.True(t, ok, "entries %d and %d out of order", i-1, i)
	}
	assert.Equal(t, time.Date(2025, 3, 3, 8, 0, 0, 123456000, time.UTC), ordered[0].PerformedAt)
}

func TestHistoryLimitBounds(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	base := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < DefaultHistoryLimit+5; i++ {
		_, err := svc.CreateHistory(ctx, core.HistoryRequest{
			PerformedAt: base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
		})
		require.NoError(t, err)
	}

	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultHistoryLimit},
		{-5, 1},
		{1, 1},
		{7, 7},
		{MaxHistoryLimit + 50, DefaultHistoryLimit + 5},
	}
	for _, tt := range tests {
		page, err := svc.ListHistory(ctx, HistoryQuery{Limit: tt.limit})
		require.NoError(t, err)
		assert.Len(t, page.Data, tt.want, "limit %d", tt.limit)
	}

	assert.Equal(t, MaxHistoryLimit, clampLimit(MaxHistoryLimit+1, DefaultHistoryLimit, MaxHistoryLimit))
}

func TestHistoryCursorAndRangeValidation(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	for _, cursor := range []string{"garbage", `{"performedAt":"2025-01-01T00:00:00Z"}`, `{"id":"x","performedAt":"2025-01-01T00:00:00Z"}`} {
		_, err := svc.ListHistory(ctx, HistoryQuery{Cursor: cursor})
		assert.Equal(t, core.ErrValidation, core.CodeOf(err), cursor)
	}

	_, err := svc.ListHistory(ctx, HistoryQuery{From: "2025-02-01T00:00:00Z", To: "2025-01-01T00:00:00Z"})
	assert.Equal(t, core.ErrValidation, core.CodeOf(err))

	_, err = svc.HistoryStats(ctx, "soon", "")
	assert.Equal(t, core.ErrValidation, core.CodeOf(err))
}

func TestCreateHistoryRules(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.CreateHistory(ctx, core.HistoryRequest{PerformedAt: "2025-01-01T00:00:00Z", DurationSeconds: -1})
	assert.Equal(t, core.ErrValidation, core.CodeOf(err))

	_, err = svc.CreateHistory(ctx, core.HistoryRequest{WorkoutID: uuid.New().String(), PerformedAt: "2025-01-01T00:00:00Z"})
	assert.Equal(t, core.ErrValidation, core.CodeOf(err))

	id := uuid.New().String()
	_, err = svc.CreateHistory(ctx, core.HistoryRequest{ID: id, PerformedAt: "2025-01-01T00:00:00Z"})
	require.NoError(t, err)
	_, err = svc.CreateHistory(ctx, core.HistoryRequest{ID: id, PerformedAt: "2025-01-01T00:00:00Z"})
	assert.Equal(t, core.ErrConflict, core.CodeOf(err))
}

func TestBackfillHistorySwallowsFailures(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	dup := uuid.New().String()
	result, err := svc.BackfillHistory(ctx, []core.HistoryRequest{
		{ID: dup, PerformedAt: "2025-01-01T00:00:00Z", DurationSeconds: 100},
		{ID: dup, PerformedAt: "2025-01-01T00:00:00Z", DurationSeconds: 100},
		{PerformedAt: "bogus", DurationSeconds: 100},
		{PerformedAt: "2025-01-02T00:00:00Z", DurationSeconds: -5},
		{WorkoutID: uuid.New().String(), PerformedAt: "2025-01-03T00:00:00Z"},
		{PerformedAt: "2025-01-04T00:00:00Z", DurationSeconds: 200},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 4, result.Skipped)

	stats, err := svc.HistoryStats(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
	assert.EqualValues(t, 300, stats.TotalDurationSeconds)
	assert.InDelta(t, 150, stats.AverageDurationSeconds, 0.001)
}

func TestPreferences(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	defaults, err := svc.GetPreferences(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "metric", defaults.Units)
	assert.Equal(t, core.DefaultPreferences(), defaults.Preferences)
	assert.Empty(t, defaults.ID, "defaults are not persisted")

	_, err = svc.SavePreferences(ctx, core.PreferencesRequest{Units: "furlongs"}, "")
	assert.Equal(t, core.ErrValidation, core.CodeOf(err))

	bad := core.DefaultPreferences()
	bad.Theme = "neon"
	_, err = svc.SavePreferences(ctx, core.PreferencesRequest{Units: "metric", Preferences: &bad}, "")
	assert.Equal(t, core.ErrValidation, core.CodeOf(err))

	prefs := core.DefaultPreferences()
	prefs.Theme = "dark"
	prefs.RestTimerSeconds = 120
	saved, err := svc.SavePreferences(ctx, core.PreferencesRequest{Units: "imperial", Preferences: &prefs}, "")
	require.NoError(t, err)

	again, err := svc.SavePreferences(ctx, core.PreferencesRequest{Units: "imperial", Preferences: &prefs}, "")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, again.ID, "second save updates the same row")

	got, err := svc.GetPreferences(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "imperial", got.Units)
	assert.Equal(t, "dark", got.Preferences.Theme)
	assert.Equal(t, 120, got.Preferences.RestTimerSeconds)

	other, err := svc.GetPreferences(ctx, "someone-else")
	require.NoError(t, err)
	assert.Equal(t, "metric", other.Units)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := setupService(t)

	token, err := svc.GenerateToken("lifter", time.Hour)
	require.NoError(t, err)

	userID, _, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "lifter", userID)

	_, _, err = svc.ValidateToken(token + "x")
	assert.Error(t, err)
}
