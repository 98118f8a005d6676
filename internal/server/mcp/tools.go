package mcp

import (
	"context"
	"fmt"
	"math"
	"time"

	"repe/internal/server/core"
	"repe/internal/server/service"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	defaultToolLimit = 20
	// A logged session may last at most a week
	maxSessionMinutes = 7 * 24 * 60
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_exercises",
		Description: "Search the exercise catalog by name substring and/or category",
	}, s.handleListExercises)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "log_workout",
		Description: "Record a workout with its exercises and sets; unknown exercise names are added to the catalog. If a set cannot be stored the workout is put back as it was before the call",
	}, s.handleLogWorkout)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_workout",
		Description: "Get a workout with its sets and totals",
	}, s.handleGetWorkout)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "delete_workout",
		Description: "Delete a workout and its sets",
	}, s.handleDeleteWorkout)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_history",
		Description: "List completed sessions, newest first; pass the returned cursor for the next page",
	}, s.handleListHistory)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "log_history",
		Description: "Record a completed session, optionally linked to a workout",
	}, s.handleLogHistory)
}

// Tool input/output types

type listExercisesInput struct {
	Search   string `json:"search,omitempty" jsonschema:"Case-insensitive name substring"`
	Category string `json:"category,omitempty" jsonschema:"Exact category, e.g. legs or chest"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Max results (default 20)"`
}

type setInput struct {
	Reps   int      `json:"reps" jsonschema:"Repetitions performed"`
	Weight float64  `json:"weight" jsonschema:"Load in the user's units"`
	RPE    *float64 `json:"rpe,omitempty" jsonschema:"Rate of perceived exertion, 0 to 10"`
}

type exerciseInput struct {
	Name         string     `json:"name" jsonschema:"Exercise name"`
	Category     string     `json:"category,omitempty" jsonschema:"Category used if the exercise is new"`
	TargetSets   *int       `json:"target_sets,omitempty" jsonschema:"Planned number of sets"`
	TargetReps   *int       `json:"target_reps,omitempty" jsonschema:"Planned reps per set"`
	TargetWeight *float64   `json:"target_weight,omitempty" jsonschema:"Planned load"`
	Sets         []setInput `json:"sets,omitempty" jsonschema:"Sets performed, in order"`
}

type logWorkoutInput struct {
	ID        string          `json:"id,omitempty" jsonschema:"Workout UUID; an existing workout is replaced"`
	Name      string          `json:"name" jsonschema:"Workout name"`
	StartTime string          `json:"start_time,omitempty" jsonschema:"RFC 3339 start time, defaults to now"`
	Exercises []exerciseInput `json:"exercises" jsonschema:"Exercises in the order performed"`
}

type workoutIDInput struct {
	ID string `json:"id" jsonschema:"Workout UUID"`
}

type listHistoryInput struct {
	Cursor string `json:"cursor,omitempty" jsonschema:"Cursor from a previous page"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Max results (default 20)"`
}

type logHistoryInput struct {
	WorkoutID       string  `json:"workout_id,omitempty" jsonschema:"Workout UUID this session belongs to"`
	PerformedAt     string  `json:"performed_at,omitempty" jsonschema:"RFC 3339 time, defaults to now"`
	DurationMinutes float64 `json:"duration_minutes" jsonschema:"Session length in minutes"`
	Notes           string  `json:"notes,omitempty" jsonschema:"Free-form notes"`
}

type simpleOutput struct {
	Message string `json:"message"`
}

// Tool handlers

func (s *Server) handleListExercises(ctx context.Context, req *mcp.CallToolRequest, input listExercisesInput) (*mcp.CallToolResult, any, error) {
	if input.Limit <= 0 {
		input.Limit = defaultToolLimit
	}

	exercises, page, err := s.svc.ListExercises(ctx, service.ExerciseQuery{
		Search:   input.Search,
		Category: input.Category,
		Limit:    input.Limit,
	})
	if err != nil {
		return nil, nil, err
	}
	if len(exercises) == 0 {
		return nil, simpleOutput{Message: "No exercises found."}, nil
	}
	return nil, map[string]any{"exercises": exercises, "total": page.Total}, nil
}

func (s *Server) handleLogWorkout(ctx context.Context, req *mcp.CallToolRequest, input logWorkoutInput) (*mcp.CallToolResult, any, error) {
	if input.ID == "" {
		input.ID = uuid.NewString()
	}

	upsert := core.UpsertWorkoutRequest{
		ID:        input.ID,
		Name:      input.Name,
		StartTime: input.StartTime,
		Source:    string(core.SourceMCP),
		Exercises: make([]core.WorkoutExerciseInput, 0, len(input.Exercises)),
	}
	for i, e := range input.Exercises {
		upsert.Exercises = append(upsert.Exercises, core.WorkoutExerciseInput{
			Name:         e.Name,
			Category:     e.Category,
			OrderIndex:   i,
			TargetSets:   e.TargetSets,
			TargetReps:   e.TargetReps,
			TargetWeight: e.TargetWeight,
		})
	}

	// Validate every set before anything is written
	for i, e := range input.Exercises {
		for j, set := range e.Sets {
			if set.Reps < 0 || set.Weight < 0 || (set.RPE != nil && (*set.RPE < 0 || *set.RPE > 10)) {
				return nil, nil, core.Validation("exercises[%d].sets[%d] is out of range", i, j)
			}
		}
	}

	prior, err := s.svc.GetWorkout(ctx, input.ID)
	if err != nil && core.CodeOf(err) != core.ErrNotFound {
		return nil, nil, err
	}

	workout, err := s.svc.UpsertWorkout(ctx, upsert, "")
	if err != nil {
		return nil, nil, err
	}

	byOrder := make(map[int]string, len(workout.Exercises))
	for _, we := range workout.Exercises {
		byOrder[we.OrderIndex] = we.ID
	}
	for i, e := range input.Exercises {
		for _, set := range e.Sets {
			reps, weight := set.Reps, set.Weight
			if _, err := s.svc.AddSet(ctx, byOrder[i], core.SetRequest{Reps: &reps, Weight: &weight, RPE: set.RPE}); err != nil {
				if rerr := s.restoreWorkout(context.WithoutCancel(ctx), workout.ID, prior); rerr != nil {
					return nil, nil, fmt.Errorf("%w; restoring workout %s also failed: %v", err, workout.ID, rerr)
				}
				return nil, nil, err
			}
		}
	}

	detail, err := s.svc.GetWorkout(ctx, workout.ID)
	if err != nil {
		return nil, nil, err
	}
	return nil, detail, nil
}

// restoreWorkout undoes a partly applied log_workout. A workout the call
// created is deleted; a replaced one is written back with its sets, which get
// fresh IDs.
func (s *Server) restoreWorkout(ctx context.Context, id string, prior *core.WorkoutDetail) error {
	if prior == nil {
		if err := s.svc.DeleteWorkout(ctx, id); err != nil && core.CodeOf(err) != core.ErrNotFound {
			return err
		}
		return nil
	}

	upsert := core.UpsertWorkoutRequest{
		ID:        prior.ID,
		Name:      prior.Name,
		UserID:    prior.UserID,
		StartTime: prior.StartedAt.Format(time.RFC3339Nano),
		Source:    prior.Source,
		Exercises: make([]core.WorkoutExerciseInput, 0, len(prior.Exercises)),
	}
	for _, we := range prior.Exercises {
		upsert.Exercises = append(upsert.Exercises, core.WorkoutExerciseInput{
			ExerciseID:   we.Exercise.ID,
			OrderIndex:   we.OrderIndex,
			TargetSets:   we.TargetSets,
			TargetReps:   we.TargetReps,
			TargetWeight: we.TargetWeight,
		})
	}
	restored, err := s.svc.UpsertWorkout(ctx, upsert, "")
	if err != nil {
		return err
	}

	byOrder := make(map[int]string, len(restored.Exercises))
	for _, we := range restored.Exercises {
		byOrder[we.OrderIndex] = we.ID
	}
	for _, we := range prior.Exercises {
		for _, set := range we.Sets {
			reps, weight := set.Reps, set.Weight
			if _, err := s.svc.AddSet(ctx, byOrder[we.OrderIndex], core.SetRequest{
				Reps:        &reps,
				Weight:      &weight,
				RPE:         set.RPE,
				RestSeconds: set.RestSeconds,
				Notes:       set.Notes,
				PerformedAt: set.PerformedAt.Format(time.RFC3339Nano),
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Server) handleGetWorkout(ctx context.Context, req *mcp.CallToolRequest, input workoutIDInput) (*mcp.CallToolResult, any, error) {
	detail, err := s.svc.GetWorkout(ctx, input.ID)
	if err != nil {
		return nil, nil, err
	}
	return nil, detail, nil
}

func (s *Server) handleDeleteWorkout(ctx context.Context, req *mcp.CallToolRequest, input workoutIDInput) (*mcp.CallToolResult, simpleOutput, error) {
	if err := s.svc.DeleteWorkout(ctx, input.ID); err != nil {
		return nil, simpleOutput{}, err
	}
	return nil, simpleOutput{Message: fmt.Sprintf("Deleted workout: %s", input.ID)}, nil
}

func (s *Server) handleListHistory(ctx context.Context, req *mcp.CallToolRequest, input listHistoryInput) (*mcp.CallToolResult, any, error) {
	if input.Limit <= 0 {
		input.Limit = defaultToolLimit
	}

	page, err := s.svc.ListHistory(ctx, service.HistoryQuery{Cursor: input.Cursor, Limit: input.Limit})
	if err != nil {
		return nil, nil, err
	}
	return nil, page, nil
}

func (s *Server) handleLogHistory(ctx context.Context, req *mcp.CallToolRequest, input logHistoryInput) (*mcp.CallToolResult, any, error) {
	performedAt := input.PerformedAt
	if performedAt == "" {
		performedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if !(input.DurationMinutes >= 0 && input.DurationMinutes <= maxSessionMinutes) {
		return nil, nil, core.Validation("duration_minutes must be between 0 and %d", maxSessionMinutes)
	}

	entry, err := s.svc.CreateHistory(ctx, core.HistoryRequest{
		WorkoutID:       input.WorkoutID,
		PerformedAt:     performedAt,
		DurationSeconds: int(math.Round(input.DurationMinutes * 60)),
		Notes:           input.Notes,
	})
	if err != nil {
		return nil, nil, err
	}
	return nil, entry, nil
}
