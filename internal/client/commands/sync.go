package commands

import (
	"errors"
	"fmt"
	"strconv"

	"repe/internal/client/display"
	"repe/internal/client/offline"
)

func (r *Registry) registerSyncCommands() {
	r.Register(&Command{
		Name:        "sync",
		ShortName:   "y",
		Group:       groupSync,
		Description: "Send queued changes to the server",
		Usage:       "sync",
		Handler:     syncHandler,
	})

	r.Register(&Command{
		Name:        "queue",
		ShortName:   "q",
		Group:       groupSync,
		Description: "List queued and failed changes",
		Usage:       "queue",
		Handler:     queueHandler,
	})

	r.Register(&Command{
		Name:        "retry",
		Group:       groupSync,
		Description: "Move a failed change back into the queue",
		Usage:       "retry <id>",
		Handler:     retryHandler,
	})

	r.Register(&Command{
		Name:        "discard",
		Group:       groupSync,
		Description: "Drop a failed change",
		Usage:       "discard <id>",
		Handler:     discardHandler,
	})
}

func queueOf(s Session) (*offline.Queue, error) {
	q := s.GetClient().Queue()
	if q == nil {
		return nil, fmt.Errorf("offline queue is not enabled")
	}
	return q, nil
}

func syncHandler(s Session, args []string) error {
	q, err := queueOf(s)
	if err != nil {
		return err
	}

	res, err := q.Flush(s.Context(), s.GetClient().Send)
	if errors.Is(err, offline.ErrUnreachable) {
		fmt.Fprintln(s.Out(), display.Yellow("Server still unreachable, sent %d", res.Sent))
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(s.Out(), display.Green("Sent %d", res.Sent))
	if res.Failed > 0 {
		fmt.Fprintln(s.Out(), display.Red("%d rejected, see 'queue'", res.Failed))
	}
	return nil
}

func queueHandler(s Session, args []string) error {
	q, err := queueOf(s)
	if err != nil {
		return err
	}

	pending, err := q.Pending()
	if err != nil {
		return err
	}
	failures, err := q.Errors()
	if err != nil {
		return err
	}

	out := s.Out()
	fmt.Fprintln(out, display.Cyan("Pending (%d):", len(pending)))
	for _, m := range pending {
		fmt.Fprintf(out, "  #%d %-6s %s %s  %s\n", m.ID, m.Op, m.Method, m.Path, m.QueuedAt.Local().Format("01-02 15:04"))
	}
	fmt.Fprintln(out, display.Cyan("Failed (%d):", len(failures)))
	for _, f := range failures {
		fmt.Fprintf(out, "  #%d %s %s\n", f.Mutation.ID, f.Mutation.Method, f.Mutation.Path)
		fmt.Fprintf(out, "     %s\n", display.Red("%s", f.Error))
	}
	return nil
}

func retryHandler(s Session, args []string) error {
	return onFailure(s, args, "retry", (*offline.Queue).Retry, "Requeued")
}

func discardHandler(s Session, args []string) error {
	return onFailure(s, args, "discard", (*offline.Queue).Discard, "Discarded")
}

func onFailure(s Session, args []string, name string, fn func(*offline.Queue, uint64) error, done string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s <id>", name)
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("id must be a number from 'queue'")
	}
	q, err := queueOf(s)
	if err != nil {
		return err
	}
	if err := fn(q, id); err != nil {
		return err
	}
	fmt.Fprintln(s.Out(), display.Green("%s #%d", done, id))
	return nil
}
