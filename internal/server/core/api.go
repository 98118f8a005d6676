package core

import (
	"encoding/json"
	"time"
)

// Request types

type CreateExerciseRequest struct {
	Name      string   `json:"name" validate:"required,max=120"`
	Category  string   `json:"category" validate:"required,max=60"`
	Equipment []string `json:"equipment,omitempty" validate:"omitempty,max=20,dive,min=1,max=60"`
	Notes     string   `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type WorkoutExerciseInput struct {
	ExerciseID   string   `json:"exerciseId,omitempty" validate:"omitempty,uuid"`
	Name         string   `json:"name,omitempty" validate:"omitempty,max=120"`
	Category     string   `json:"category,omitempty" validate:"omitempty,max=60"`
	OrderIndex   int      `json:"orderIndex" validate:"min=0"`
	TargetSets   *int     `json:"targetSets,omitempty" validate:"omitempty,min=0,max=100"`
	TargetReps   *int     `json:"targetReps,omitempty" validate:"omitempty,min=0,max=1000"`
	TargetWeight *float64 `json:"targetWeight,omitempty" validate:"omitempty,min=0"`
}

type UpsertWorkoutRequest struct {
	ID        string                 `json:"id,omitempty" validate:"omitempty,uuid"`
	Name      string                 `json:"name" validate:"required,max=120"`
	UserID    string                 `json:"userId,omitempty" validate:"omitempty,max=128"`
	StartTime string                 `json:"startTime,omitempty"`
	Source    string                 `json:"source,omitempty" validate:"omitempty,oneof=app import mcp"`
	Exercises []WorkoutExerciseInput `json:"exercises" validate:"max=100,dive"`
}

type AddWorkoutExerciseRequest struct {
	ExerciseID   string   `json:"exerciseId,omitempty" validate:"omitempty,uuid"`
	Name         string   `json:"name,omitempty" validate:"omitempty,max=120"`
	Category     string   `json:"category,omitempty" validate:"omitempty,max=60"`
	OrderIndex   *int     `json:"orderIndex,omitempty" validate:"omitempty,min=0"`
	TargetSets   *int     `json:"targetSets,omitempty" validate:"omitempty,min=0,max=100"`
	TargetReps   *int     `json:"targetReps,omitempty" validate:"omitempty,min=0,max=1000"`
	TargetWeight *float64 `json:"targetWeight,omitempty" validate:"omitempty,min=0"`
}

type SetRequest struct {
	Reps        *int     `json:"reps" validate:"required,min=0"`
	Weight      *float64 `json:"weight" validate:"required,min=0"`
	RPE         *float64 `json:"rpe,omitempty" validate:"omitempty,min=0,max=10"`
	RestSeconds *int     `json:"restSeconds,omitempty" validate:"omitempty,min=0"`
	Notes       *string  `json:"notes,omitempty" validate:"omitempty,max=2000"`
	PerformedAt string   `json:"performedAt,omitempty"`
}

type UpdateSetRequest struct {
	Reps        *int     `json:"reps,omitempty" validate:"omitempty,min=0"`
	Weight      *float64 `json:"weight,omitempty" validate:"omitempty,min=0"`
	RPE         *float64 `json:"rpe,omitempty" validate:"omitempty,min=0,max=10"`
	RestSeconds *int     `json:"restSeconds,omitempty" validate:"omitempty,min=0"`
	Notes       *string  `json:"notes,omitempty" validate:"omitempty,max=2000"`
	PerformedAt string   `json:"performedAt,omitempty"`
}

type HistoryRequest struct {
	ID              string `json:"id,omitempty" validate:"omitempty,uuid"`
	WorkoutID       string `json:"workoutId,omitempty" validate:"omitempty,uuid"`
	PerformedAt     string `json:"performedAt" validate:"required"`
	DurationSeconds int    `json:"durationSeconds" validate:"min=0"`
	Notes           string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type BackfillRequest struct {
	Entries []HistoryRequest `json:"entries" validate:"required,max=1000"`
}

type PreferencesRequest struct {
	UserID      string       `json:"userId,omitempty" validate:"omitempty,max=128"`
	Units       string       `json:"units" validate:"required,oneof=metric imperial"`
	Preferences *Preferences `json:"preferences,omitempty"`
}

// Preferences is the validated shape of the stored preferences JSON
type Preferences struct {
	RestTimerSeconds   int     `json:"restTimerSeconds" validate:"min=0,max=3600"`
	DefaultRPE         float64 `json:"defaultRpe" validate:"min=0,max=10"`
	WeightIncrement    float64 `json:"weightIncrement" validate:"gt=0,max=100"`
	Theme              string  `json:"theme" validate:"oneof=light dark system"`
	AutoStartRestTimer bool    `json:"autoStartRestTimer"`
}

// DefaultPreferences returns the preferences used when none are stored
func DefaultPreferences() Preferences {
	return Preferences{
		RestTimerSeconds: 90,
		DefaultRPE:       7,
		WeightIncrement:  2.5,
		Theme:            "system",
	}
}

// UnmarshalJSON fills fields missing from data with their defaults
func (p *Preferences) UnmarshalJSON(data []byte) error {
	type plain Preferences
	v := plain(DefaultPreferences())
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Preferences(v)
	return nil
}

// Response types

type Exercise struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Equipment []string  `json:"equipment"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Workout struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	UserID    string            `json:"userId,omitempty"`
	StartedAt time.Time         `json:"startedAt"`
	Source    string            `json:"source"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Exercises []ExerciseSummary `json:"exercises"`
}

type ExerciseSummary struct {
	WorkoutExerciseID string `json:"workoutExerciseId"`
	ExerciseID        string `json:"exerciseId"`
	Name              string `json:"name"`
	OrderIndex        int    `json:"orderIndex"`
}

type WorkoutDetail struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	UserID    string                  `json:"userId,omitempty"`
	StartedAt time.Time               `json:"startedAt"`
	Source    string                  `json:"source"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
	Exercises []WorkoutExerciseDetail `json:"exercises"`
	Totals    WorkoutTotals           `json:"totals"`
}

type WorkoutExerciseDetail struct {
	ID           string   `json:"id"`
	OrderIndex   int      `json:"orderIndex"`
	TargetSets   *int     `json:"targetSets,omitempty"`
	TargetReps   *int     `json:"targetReps,omitempty"`
	TargetWeight *float64 `json:"targetWeight,omitempty"`
	Exercise     Exercise `json:"exercise"`
	Sets         []Set    `json:"sets"`
}

type WorkoutTotals struct {
	Sets       int      `json:"sets"`
	Reps       int      `json:"reps"`
	Volume     float64  `json:"volume"`
	AverageRPE *float64 `json:"averageRpe,omitempty"`
}

type Set struct {
	ID                string    `json:"id"`
	WorkoutExerciseID string    `json:"workoutExerciseId"`
	PerformedAt       time.Time `json:"performedAt"`
	Reps              int       `json:"reps"`
	Weight            float64   `json:"weight"`
	RPE               *float64  `json:"rpe,omitempty"`
	RestSeconds       *int      `json:"restSeconds,omitempty"`
	Notes             *string   `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

type HistoryEntry struct {
	ID              string    `json:"id"`
	WorkoutID       *string   `json:"workoutId"`
	PerformedAt     time.Time `json:"performedAt"`
	DurationSeconds int       `json:"durationSeconds"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

type HistoryPage struct {
	Data    []HistoryEntry `json:"data"`
	Cursor  string         `json:"cursor,omitempty"`
	HasMore bool           `json:"hasMore"`
}

type HistoryStats struct {
	Count                  int     `json:"count"`
	TotalDurationSeconds   int64   `json:"totalDurationSeconds"`
	AverageDurationSeconds float64 `json:"averageDurationSeconds"`
}

type BackfillResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

type UserSettings struct {
	ID          string      `json:"id,omitempty"`
	UserID      string      `json:"userId,omitempty"`
	Units       string      `json:"units"`
	Preferences Preferences `json:"preferences"`
	CreatedAt   *time.Time  `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time  `json:"updatedAt,omitempty"`
}

// Envelope types

type Pagination struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

type Response struct {
	Success    bool           `json:"success"`
	Data       any            `json:"data,omitempty"`
	Pagination *Pagination    `json:"pagination,omitempty"`
	Cursor     string         `json:"cursor,omitempty"`
	HasMore    *bool          `json:"hasMore,omitempty"`
	Error      *ErrorResponse `json:"error,omitempty"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
