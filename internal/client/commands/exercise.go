package commands

import (
	"fmt"
	"strings"

	"repe/internal/client/display"
	"repe/internal/server/core"
)

func (r *Registry) registerExerciseCommands() {
	r.Register(&Command{
		Name:        "exercises",
		ShortName:   "e",
		Group:       groupExercise,
		Description: "List or search the exercise catalog",
		Usage:       "exercises [search]",
		Handler:     listExercisesHandler,
	})

	r.Register(&Command{
		Name:        "exercise-add",
		ShortName:   "ea",
		Group:       groupExercise,
		Description: "Add an exercise to the catalog",
		Usage:       "exercise-add <category> <name>",
		Handler:     createExerciseHandler,
	})
}

func listExercisesHandler(s Session, args []string) error {
	search := strings.Join(args, " ")
	exercises, page, err := s.GetClient().ListExercises(s.Context(), search, "", 0, 0)
	if err != nil {
		return err
	}
	display.RenderExercises(s.Out(), exercises, *page)
	return nil
}

func createExerciseHandler(s Session, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: exercise-add <category> <name>")
	}

	ex, err := s.GetClient().CreateExercise(s.Context(), core.CreateExerciseRequest{
		Category: args[0],
		Name:     strings.Join(args[1:], " "),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(s.Out(), display.Green("Exercise created: %s (%s)", ex.Name, ex.ID))
	return nil
}
