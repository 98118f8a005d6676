package storage

import (
	"strings"
	"time"
)

// ExerciseRecord represents a row in the exercises table
type ExerciseRecord struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Category  string    `db:"category"`
	Equipment []string  `db:"equipment"` // JSON array text
	Notes     string    `db:"notes"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// WorkoutRecord represents a row in the workouts table
type WorkoutRecord struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	UserID    string    `db:"user_id"`
	StartedAt time.Time `db:"started_at"`
	Source    string    `db:"source"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// WorkoutExerciseRecord is a workout_exercises row joined with its exercise
type WorkoutExerciseRecord struct {
	ID           string   `db:"id"`
	WorkoutID    string   `db:"workout_id"`
	ExerciseID   string   `db:"exercise_id"`
	OrderIndex   int      `db:"order_index"`
	TargetSets   *int     `db:"target_sets"`
	TargetReps   *int     `db:"target_reps"`
	TargetWeight *float64 `db:"target_weight"`
	Exercise     ExerciseRecord
}

// SetRecord represents a row in the sets table
type SetRecord struct {
	ID                string    `db:"id"`
	WorkoutExerciseID string    `db:"workout_exercise_id"`
	PerformedAt       time.Time `db:"performed_at"`
	Reps              int       `db:"reps"`
	Weight            float64   `db:"weight"`
	RPE               *float64  `db:"rpe"`
	RestSeconds       *int      `db:"rest_seconds"`
	Notes             *string   `db:"notes"`
	CreatedAt         time.Time `db:"created_at"`
}

// HistoryRecord represents a row in the history table
type HistoryRecord struct {
	ID              string    `db:"id"`
	WorkoutID       *string   `db:"workout_id"` // nil once the workout is deleted
	PerformedAt     time.Time `db:"performed_at"`
	DurationSeconds int       `db:"duration_seconds"`
	Notes           string    `db:"notes"`
	CreatedAt       time.Time `db:"created_at"`
}

// UserSettingsRecord represents a row in the user_settings table
type UserSettingsRecord struct {
	ID              string    `db:"id"`
	UserID          string    `db:"user_id"` // empty for the global row
	Units           string    `db:"units"`
	PreferencesJSON string    `db:"preferences_json"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// Schema defines the database structure. TS and FLOAT are replaced per dialect.
const Schema = `
CREATE TABLE IF NOT EXISTS exercises (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	category TEXT NOT NULL,
	equipment TEXT NOT NULL DEFAULT '[]',
	notes TEXT,
	created_at TS NOT NULL,
	updated_at TS NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exercises_name_lower ON exercises(LOWER(name));
CREATE INDEX IF NOT EXISTS idx_exercises_category ON exercises(category);

CREATE TABLE IF NOT EXISTS workouts (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	user_id TEXT,
	started_at TS NOT NULL,
	source TEXT NOT NULL DEFAULT 'app' CHECK(source IN ('app', 'import', 'mcp')),
	created_at TS NOT NULL,
	updated_at TS NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_workouts_started_at ON workouts(started_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_workouts_user_id ON workouts(user_id);

CREATE TABLE IF NOT EXISTS workout_exercises (
	id TEXT PRIMARY KEY,
	workout_id TEXT NOT NULL,
	exercise_id TEXT NOT NULL,
	order_index INTEGER NOT NULL CHECK(order_index >= 0),
	target_sets INTEGER CHECK(target_sets IS NULL OR target_sets >= 0),
	target_reps INTEGER CHECK(target_reps IS NULL OR target_reps >= 0),
	target_weight FLOAT CHECK(target_weight IS NULL OR target_weight >= 0),
	FOREIGN KEY (workout_id) REFERENCES workouts(id) ON DELETE CASCADE,
	FOREIGN KEY (exercise_id) REFERENCES exercises(id),
	UNIQUE(workout_id, order_index)
);

CREATE INDEX IF NOT EXISTS idx_workout_exercises_exercise_id ON workout_exercises(exercise_id);

CREATE TABLE IF NOT EXISTS sets (
	id TEXT PRIMARY KEY,
	workout_exercise_id TEXT NOT NULL,
	performed_at TS NOT NULL,
	reps INTEGER NOT NULL CHECK(reps >= 0),
	weight FLOAT NOT NULL CHECK(weight >= 0),
	rpe FLOAT CHECK(rpe IS NULL OR (rpe >= 0 AND rpe <= 10)),
	rest_seconds INTEGER CHECK(rest_seconds IS NULL OR rest_seconds >= 0),
	notes TEXT,
	created_at TS NOT NULL,
	FOREIGN KEY (workout_exercise_id) REFERENCES workout_exercises(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_sets_workout_exercise_id ON sets(workout_exercise_id);
CREATE INDEX IF NOT EXISTS idx_sets_performed_at ON sets(performed_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS history (
	id TEXT PRIMARY KEY,
	workout_id TEXT,
	performed_at TS NOT NULL,
	duration_seconds INTEGER NOT NULL CHECK(duration_seconds >= 0),
	notes TEXT,
	created_at TS NOT NULL,
	FOREIGN KEY (workout_id) REFERENCES workouts(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_history_performed_at ON history(performed_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_history_workout_id ON history(workout_id);

CREATE TABLE IF NOT EXISTS user_settings (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL DEFAULT '' UNIQUE,
	units TEXT NOT NULL DEFAULT 'metric' CHECK(units IN ('metric', 'imperial')),
	preferences_json TEXT NOT NULL DEFAULT '{}',
	created_at TS NOT NULL,
	updated_at TS NOT NULL
);
`

// dropOrder lists tables children first
var dropOrder = []string{"sets", "history", "workout_exercises", "workouts", "exercises", "user_settings"}

// schemaStatements renders Schema for a dialect and splits it into statements
func schemaStatements(d Dialect) []string {
	r := strings.NewReplacer(" TS ", " DATETIME ", " FLOAT ", " REAL ")
	if d == DialectPostgres {
		r = strings.NewReplacer(" TS ", " TIMESTAMPTZ ", " FLOAT ", " DOUBLE PRECISION ")
	}

	var stmts []string
	for _, stmt := range strings.Split(r.Replace(Schema), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
