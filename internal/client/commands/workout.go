package commands

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"repe/internal/client/display"
	"repe/internal/client/offline"
	"repe/internal/server/core"

	"github.com/google/uuid"
)

// Draft is the workout being recorded locally before it is saved to the server
type Draft struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	StartedAt time.Time       `json:"startedAt"`
	Exercises []DraftExercise `json:"exercises"`
}

type DraftExercise struct {
	Name string     `json:"name"`
	Sets []DraftSet `json:"sets"`
}

type DraftSet struct {
	Reps        int       `json:"reps"`
	Weight      float64   `json:"weight"`
	RPE         *float64  `json:"rpe,omitempty"`
	PerformedAt time.Time `json:"performedAt"`
}

func (r *Registry) registerWorkoutCommands() {
	r.Register(&Command{
		Name:        "new",
		ShortName:   "n",
		Group:       groupWorkout,
		Description: "Start a new workout draft",
		Usage:       "new <name>",
		Handler:     newDraftHandler,
	})

	r.Register(&Command{
		Name:        "add",
		ShortName:   "a",
		Group:       groupWorkout,
		Description: "Add an exercise to the draft",
		Usage:       "add <exercise name>",
		Handler:     addExerciseHandler,
	})

	r.Register(&Command{
		Name:        "set",
		ShortName:   "s",
		Group:       groupWorkout,
		Description: "Record a set for a draft exercise",
		Usage:       "set <exercise#> <reps> <weight> [rpe]",
		Handler:     addSetHandler,
	})

	r.Register(&Command{
		Name:        "draft",
		ShortName:   "d",
		Group:       groupWorkout,
		Description: "Show the current draft",
		Usage:       "draft",
		Handler:     showDraftHandler,
	})

	r.Register(&Command{
		Name:        "save",
		ShortName:   "w",
		Group:       groupWorkout,
		Description: "Save the draft to the server",
		Usage:       "save",
		Handler:     saveDraftHandler,
	})

	r.Register(&Command{
		Name:        "drop",
		Group:       groupWorkout,
		Description: "Discard the current draft",
		Usage:       "drop",
		Handler:     dropDraftHandler,
	})

	r.Register(&Command{
		Name:        "workouts",
		ShortName:   "l",
		Group:       groupWorkout,
		Description: "List saved workouts",
		Usage:       "workouts [limit] [offset]",
		Handler:     listWorkoutsHandler,
	})

	r.Register(&Command{
		Name:        "show",
		ShortName:   "h",
		Group:       groupWorkout,
		Description: "Show a saved workout",
		Usage:       "show [workoutId]",
		Handler:     showWorkoutHandler,
	})

	r.Register(&Command{
		Name:        "delete",
		Group:       groupWorkout,
		Description: "Delete a saved workout",
		Usage:       "delete [workoutId]",
		Handler:     deleteWorkoutHandler,
	})
}

func newDraftHandler(s Session, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: new <name>")
	}

	if _, ok, err := s.Drafts().Load(); err != nil {
		return err
	} else if ok {
		return fmt.Errorf("a draft is already open; 'save' or 'drop' it first")
	}

	d := Draft{
		ID:        uuid.NewString(),
		Name:      strings.Join(args, " "),
		StartedAt: time.Now().UTC(),
	}
	if err := s.Drafts().Save(d); err != nil {
		return err
	}
	fmt.Fprintln(s.Out(), display.Green("Draft started: %s", d.Name))
	return nil
}

// loadDraft returns the open draft or an error telling the user how to start one
func loadDraft(s Session) (Draft, error) {
	d, ok, err := s.Drafts().Load()
	if err != nil {
		return d, err
	}
	if !ok {
		return d, fmt.Errorf("no draft open, use 'new <name>'")
	}
	return d, nil
}

func addExerciseHandler(s Session, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: add <exercise name>")
	}
	d, err := loadDraft(s)
	if err != nil {
		return err
	}

	name := strings.Join(args, " ")
	for _, e := range d.Exercises {
		if strings.EqualFold(e.Name, name) {
			return fmt.Errorf("%s is already in the draft", e.Name)
		}
	}
	d.Exercises = append(d.Exercises, DraftExercise{Name: name})
	if err := s.Drafts().Save(d); err != nil {
		return err
	}
	fmt.Fprintln(s.Out(), display.Green("Added #%d %s", len(d.Exercises), name))
	return nil
}

func addSetHandler(s Session, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: set <exercise#> <reps> <weight> [rpe]")
	}
	d, err := loadDraft(s)
	if err != nil {
		return err
	}

	idx, err := strconv.Atoi(args[0])
	if err != nil || idx < 1 || idx > len(d.Exercises) {
		return fmt.Errorf("exercise# must be between 1 and %d", len(d.Exercises))
	}
	reps, err := strconv.Atoi(args[1])
	if err != nil || reps < 0 {
		return fmt.Errorf("reps must be a non-negative integer")
	}
	weight, err := strconv.ParseFloat(args[2], 64)
	if err != nil || weight < 0 {
		return fmt.Errorf("weight must be a non-negative number")
	}

	set := DraftSet{Reps: reps, Weight: weight, PerformedAt: time.Now().UTC()}
	if len(args) > 3 {
		rpe, err := strconv.ParseFloat(args[3], 64)
		if err != nil || rpe < 0 || rpe > 10 {
			return fmt.Errorf("rpe must be between 0 and 10")
		}
		set.RPE = &rpe
	}

	ex := &d.Exercises[idx-1]
	ex.Sets = append(ex.Sets, set)
	if err := s.Drafts().Save(d); err != nil {
		return err
	}
	fmt.Fprintln(s.Out(), display.Green("%s set %d: %d x %s", ex.Name, len(ex.Sets), reps, display.Weight(weight, s.GetUnits())))
	return nil
}

func showDraftHandler(s Session, args []string) error {
	d, err := loadDraft(s)
	if err != nil {
		return err
	}

	out := s.Out()
	fmt.Fprintf(out, "%s (draft, started %s)\n", display.Bold("%s", d.Name), d.StartedAt.Local().Format("15:04"))
	if len(d.Exercises) == 0 {
		fmt.Fprintln(out, "  no exercises, use 'add <name>'")
	}
	for i, e := range d.Exercises {
		fmt.Fprintf(out, "%s %s\n", display.Yellow("%d.", i+1), e.Name)
		for j, set := range e.Sets {
			fmt.Fprintf(out, "   %d  %d x %s\n", j+1, set.Reps, display.Weight(set.Weight, s.GetUnits()))
		}
	}
	return nil
}

// saveDraftHandler upserts the workout under the draft's own ID, then adds
// each set. A failure leaves the draft in place; saving again replaces the
// workout, so partially sent sets are not duplicated. Saves never go through
// the offline queue: the draft already holds the state, and a replayed upsert
// would wipe sets saved after it.
func saveDraftHandler(s Session, args []string) error {
	d, err := loadDraft(s)
	if err != nil {
		return err
	}
	c := s.GetClient().Direct()
	ctx := s.Context()

	req := core.UpsertWorkoutRequest{
		ID:        d.ID,
		Name:      d.Name,
		StartTime: d.StartedAt.Format(time.RFC3339Nano),
		Source:    string(core.SourceApp),
		Exercises: make([]core.WorkoutExerciseInput, 0, len(d.Exercises)),
	}
	for i, e := range d.Exercises {
		req.Exercises = append(req.Exercises, core.WorkoutExerciseInput{Name: e.Name, OrderIndex: i})
	}

	w, err := c.SaveWorkout(ctx, req)
	if errors.Is(err, offline.ErrUnreachable) {
		return fmt.Errorf("%w; the draft is kept, run 'save' again once the server is back", err)
	}
	if err != nil {
		return err
	}

	byOrder := make(map[int]string, len(w.Exercises))
	for _, we := range w.Exercises {
		byOrder[we.OrderIndex] = we.ID
	}

	sent := 0
	for i, e := range d.Exercises {
		for _, set := range e.Sets {
			reps, weight := set.Reps, set.Weight
			_, err := c.AddSet(ctx, byOrder[i], core.SetRequest{
				Reps:        &reps,
				Weight:      &weight,
				RPE:         set.RPE,
				PerformedAt: set.PerformedAt.Format(time.RFC3339Nano),
			})
			if err != nil {
				return fmt.Errorf("saved %d sets before failing, run 'save' again: %w", sent, err)
			}
			sent++
		}
	}

	// Upserts queued for this workout by older clients would replace it again
	if q := s.GetClient().Queue(); q != nil {
		path := "/api/workouts/" + w.ID
		if _, err := q.DropPending(func(m offline.Mutation) bool {
			return m.Path == path && m.Method != http.MethodDelete
		}); err != nil {
			return err
		}
	}

	if err := s.Drafts().Clear(); err != nil {
		return err
	}
	s.SetCurrentWorkout(w.ID)
	fmt.Fprintln(s.Out(), display.Green("Workout saved: %s (%d sets)", w.ID, sent))
	return nil
}

func dropDraftHandler(s Session, args []string) error {
	if err := s.Drafts().Clear(); err != nil {
		return err
	}
	fmt.Fprintln(s.Out(), display.Cyan("Draft discarded"))
	return nil
}

func listWorkoutsHandler(s Session, args []string) error {
	limit, offset, err := pageArgs(args)
	if err != nil {
		return err
	}

	workouts, page, err := s.GetClient().ListWorkouts(s.Context(), limit, offset)
	if err != nil {
		return err
	}
	display.RenderWorkouts(s.Out(), workouts, *page)
	return nil
}

func showWorkoutHandler(s Session, args []string) error {
	id, err := workoutArg(s, args)
	if err != nil {
		return err
	}

	w, err := s.GetClient().GetWorkout(s.Context(), id)
	if err != nil {
		return err
	}
	s.SetCurrentWorkout(w.ID)
	display.RenderWorkout(s.Out(), w, s.GetUnits())
	return nil
}

func deleteWorkoutHandler(s Session, args []string) error {
	id, err := workoutArg(s, args)
	if err != nil {
		return err
	}

	if err := s.GetClient().DeleteWorkout(s.Context(), id); err != nil {
		return err
	}
	if s.GetCurrentWorkout() == id {
		s.SetCurrentWorkout("")
	}
	fmt.Fprintln(s.Out(), display.Green("Workout deleted: %s", id))
	return nil
}

func workoutArg(s Session, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if id := s.GetCurrentWorkout(); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("no current workout, pass a workout ID")
}

func pageArgs(args []string) (limit, offset int, err error) {
	if len(args) > 0 {
		if limit, err = strconv.Atoi(args[0]); err != nil {
			return 0, 0, fmt.Errorf("limit must be an integer")
		}
	}
	if len(args) > 1 {
		if offset, err = strconv.Atoi(args[1]); err != nil {
			return 0, 0, fmt.Errorf("offset must be an integer")
		}
	}
	return limit, offset, nil
}
