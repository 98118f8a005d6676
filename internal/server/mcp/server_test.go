package mcp

import (
	"context"
	"path/filepath"
	"testing"

	"repe/internal/server/core"
	"repe/internal/server/service"
	"repe/internal/server/storage"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T) *Server {
	t.Helper()

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "repe.db"), false)
	require.NoError(t, err)
	require.NoError(t, store.InitDB(context.Background()))

	svc := service.New(store, []byte("test-secret-minimum-32-characters-long"))
	t.Cleanup(func() { _ = svc.Shutdown() })
	return NewServer(svc)
}

func ptr[T any](v T) *T { return &v }

func TestLogAndGetWorkout(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	_, out, err := s.handleLogWorkout(ctx, &mcp.CallToolRequest{}, logWorkoutInput{
		Name: "Leg Day",
		Exercises: []exerciseInput{
			{Name: "Back Squat", Category: "legs", Sets: []setInput{
				{Reps: 5, Weight: 100, RPE: ptr(8.0)},
				{Reps: 5, Weight: 100},
				{Reps: 3, Weight: 100},
			}},
			{Name: "Leg Press", TargetSets: ptr(3)},
		},
	})
	require.NoError(t, err)

	detail, ok := out.(*core.WorkoutDetail)
	require.True(t, ok)
	assert.Equal(t, string(core.SourceMCP), detail.Source)
	require.Len(t, detail.Exercises, 2)
	assert.Equal(t, core.WorkoutTotals{Sets: 3, Reps: 13, Volume: 1300, AverageRPE: ptr(8.0)}, detail.Totals)

	_, out, err = s.handleGetWorkout(ctx, &mcp.CallToolRequest{}, workoutIDInput{ID: detail.ID})
	require.NoError(t, err)
	assert.Equal(t, detail.ID, out.(*core.WorkoutDetail).ID)

	_, msg, err := s.handleDeleteWorkout(ctx, &mcp.CallToolRequest{}, workoutIDInput{ID: detail.ID})
	require.NoError(t, err)
	assert.Contains(t, msg.Message, detail.ID)

	_, _, err = s.handleGetWorkout(ctx, &mcp.CallToolRequest{}, workoutIDInput{ID: detail.ID})
	assert.Equal(t, core.ErrNotFound, core.CodeOf(err))
}

func TestLogWorkoutRejectsBadSetBeforeWriting(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()
	id := uuid.NewString()

	_, _, err := s.handleLogWorkout(ctx, &mcp.CallToolRequest{}, logWorkoutInput{
		ID:   id,
		Name: "Push",
		Exercises: []exerciseInput{
			{Name: "Bench Press", Sets: []setInput{{Reps: 5, Weight: 80, RPE: ptr(11.0)}}},
		},
	})
	assert.Equal(t, core.ErrValidation, core.CodeOf(err))

	_, _, err = s.handleGetWorkout(ctx, &mcp.CallToolRequest{}, workoutIDInput{ID: id})
	assert.Equal(t, core.ErrNotFound, core.CodeOf(err))
}

func TestRestoreWorkoutAfterPartialLog(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	_, out, err := s.handleLogWorkout(ctx, &mcp.CallToolRequest{}, logWorkoutInput{
		Name:      "Leg Day",
		StartTime: "2025-02-01T09:00:00Z",
		Exercises: []exerciseInput{
			{Name: "Back Squat", Category: "legs", TargetSets: ptr(3), Sets: []setInput{
				{Reps: 5, Weight: 100, RPE: ptr(8.0)},
				{Reps: 3, Weight: 110},
			}},
			{Name: "Leg Press"},
		},
	})
	require.NoError(t, err)
	prior := out.(*core.WorkoutDetail)

	// A replacement that stopped before its sets were written
	_, err = s.svc.UpsertWorkout(ctx, core.UpsertWorkoutRequest{
		ID:        prior.ID,
		Name:      "Pull Day",
		Exercises: []core.WorkoutExerciseInput{{Name: "Deadlift"}},
	}, "")
	require.NoError(t, err)

	require.NoError(t, s.restoreWorkout(ctx, prior.ID, prior))
	restored, err := s.svc.GetWorkout(ctx, prior.ID)
	require.NoError(t, err)
	assert.Equal(t, "Leg Day", restored.Name)
	assert.True(t, prior.StartedAt.Equal(restored.StartedAt))
	assert.Equal(t, prior.Totals, restored.Totals)
	require.Len(t, restored.Exercises, 2)
	assert.Equal(t, "Back Squat", restored.Exercises[0].Exercise.Name)
	assert.Equal(t, ptr(3), restored.Exercises[0].TargetSets)
	assert.Len(t, restored.Exercises[0].Sets, 2)
	assert.Equal(t, "Leg Press", restored.Exercises[1].Exercise.Name)

	// A workout the failed call created is removed
	fresh, err := s.svc.UpsertWorkout(ctx, core.UpsertWorkoutRequest{Name: "Half Logged", Exercises: []core.WorkoutExerciseInput{}}, "")
	require.NoError(t, err)
	require.NoError(t, s.restoreWorkout(ctx, fresh.ID, nil))
	_, err = s.svc.GetWorkout(ctx, fresh.ID)
	assert.Equal(t, core.ErrNotFound, core.CodeOf(err))

	assert.NoError(t, s.restoreWorkout(ctx, uuid.NewString(), nil))
}

func TestHistoryTools(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	for _, at := range []string{"2025-03-01T07:00:00Z", "2025-03-02T07:00:00Z", "2025-03-03T07:00:00Z"} {
		_, _, err := s.handleLogHistory(ctx, &mcp.CallToolRequest{}, logHistoryInput{PerformedAt: at, DurationMinutes: 30})
		require.NoError(t, err)
	}

	_, out, err := s.handleListHistory(ctx, &mcp.CallToolRequest{}, listHistoryInput{Limit: 2})
	require.NoError(t, err)
	page := out.(*core.HistoryPage)
	require.Len(t, page.Data, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, 1800, page.Data[0].DurationSeconds)
	assert.Equal(t, 3, page.Data[0].PerformedAt.Day())

	_, out, err = s.handleListHistory(ctx, &mcp.CallToolRequest{}, listHistoryInput{Cursor: page.Cursor})
	require.NoError(t, err)
	assert.Len(t, out.(*core.HistoryPage).Data, 1)

	for _, minutes := range []float64{-1, maxSessionMinutes + 1, 1e300} {
		_, _, err = s.handleLogHistory(ctx, &mcp.CallToolRequest{}, logHistoryInput{DurationMinutes: minutes})
		assert.Equal(t, core.ErrValidation, core.CodeOf(err), "%v minutes", minutes)
	}

	_, out, err = s.handleLogHistory(ctx, &mcp.CallToolRequest{}, logHistoryInput{DurationMinutes: 1.9999})
	require.NoError(t, err)
	assert.Equal(t, 120, out.(*core.HistoryEntry).DurationSeconds, "fractional minutes round to the nearest second")

	_, _, err = s.handleLogHistory(ctx, &mcp.CallToolRequest{}, logHistoryInput{WorkoutID: uuid.NewString(), DurationMinutes: 10})
	assert.Equal(t, core.ErrValidation, core.CodeOf(err))
}

func TestListExercisesTool(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	_, out, err := s.handleListExercises(ctx, &mcp.CallToolRequest{}, listExercisesInput{Search: "squat"})
	require.NoError(t, err)
	assert.Equal(t, simpleOutput{Message: "No exercises found."}, out)

	_, err = s.svc.CreateExercise(ctx, core.CreateExerciseRequest{Name: "Front Squat", Category: "legs"})
	require.NoError(t, err)

	_, out, err = s.handleListExercises(ctx, &mcp.CallToolRequest{}, listExercisesInput{Search: "SQUAT"})
	require.NoError(t, err)
	res := out.(map[string]any)
	assert.Equal(t, 1, res["total"])
}

func TestToolsOverInMemoryTransport(t *testing.T) {
	s := setupServer(t)
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := s.Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"list_exercises", "log_workout", "get_workout", "delete_workout", "list_history", "log_history"}, names)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "log_history",
		Arguments: map[string]any{"duration_minutes": 45, "notes": "easy run"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "get_workout",
		Arguments: map[string]any{"id": "not-a-uuid"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
