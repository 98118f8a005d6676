// Package offline keeps API mutations made while the server is unreachable and
// replays them in order once it is back.
package offline

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
)

var (
	// ErrUnreachable marks a send that failed before reaching the server.
	// Flush stops on it and leaves the mutation pending.
	ErrUnreachable = errors.New("server unreachable")
	ErrNotFound    = errors.New("mutation not found")
)

var (
	pendingPrefix = []byte("pending/")
	failedPrefix  = []byte("failed/")
	sequenceKey   = []byte("meta/sequence")
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// OpForMethod classifies an HTTP method
func OpForMethod(method string) Op {
	switch method {
	case "POST":
		return OpCreate
	case "DELETE":
		return OpDelete
	default:
		return OpUpdate
	}
}

// Mutation is one queued API write
type Mutation struct {
	ID       uint64          `json:"id"`
	Op       Op              `json:"op"`
	Method   string          `json:"method"`
	Path     string          `json:"path"`
	Body     json.RawMessage `json:"body,omitempty"`
	QueuedAt time.Time       `json:"queuedAt"`
}

// Failure is a mutation the server rejected during a flush
type Failure struct {
	Mutation Mutation  `json:"mutation"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failedAt"`
}

type FlushResult struct {
	Sent   int
	Failed int
}

// SendFunc delivers one mutation to the server
type SendFunc func(ctx context.Context, m Mutation) error

// Queue is a durable FIFO of mutations backed by BadgerDB
type Queue struct {
	db  *badger.DB
	seq *badger.Sequence
	now func() time.Time

	// Held for the whole of a flush so two flushes never interleave
	flushMu sync.Mutex
}

// Open opens the queue stored in dir, or an in-memory queue when dir is empty
func Open(dir string) (*Queue, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open offline queue: %w", err)
	}

	seq, err := db.GetSequence(sequenceKey, 100)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open queue sequence: %w", err)
	}

	return &Queue{db: db, seq: seq, now: time.Now}, nil
}

func (q *Queue) Close() error {
	return errors.Join(q.seq.Release(), q.db.Close())
}

// Enqueue appends m, assigning its ID and queue time
func (q *Queue) Enqueue(m Mutation) (Mutation, error) {
	n, err := q.seq.Next()
	if err != nil {
		return m, fmt.Errorf("next mutation id: %w", err)
	}
	m.ID = n + 1
	m.QueuedAt = q.now().UTC()
	if m.Op == "" {
		m.Op = OpForMethod(m.Method)
	}

	data, err := json.Marshal(m)
	if err != nil {
		return m, fmt.Errorf("encode mutation: %w", err)
	}
	err = q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(pendingPrefix, m.ID), data)
	})
	if err != nil {
		return m, fmt.Errorf("store mutation: %w", err)
	}
	return m, nil
}

// Pending lists queued mutations in send order
func (q *Queue) Pending() ([]Mutation, error) {
	var out []Mutation
	err := q.scan(pendingPrefix, func(val []byte) error {
		var m Mutation
		if err := json.Unmarshal(val, &m); err != nil {
			return err
		}
		out = append(out, m)
		return nil
	})
	return out, err
}

// Errors lists mutations that failed during a flush, oldest first
func (q *Queue) Errors() ([]Failure, error) {
	var out []Failure
	err := q.scan(failedPrefix, func(val []byte) error {
		var f Failure
		if err := json.Unmarshal(val, &f); err != nil {
			return err
		}
		out = append(out, f)
		return nil
	})
	return out, err
}

// Flush sends pending mutations one at a time in FIFO order. Rejected
// mutations move to the error list; an unreachable server or a cancelled
// context stops the flush with the current mutation still pending.
func (q *Queue) Flush(ctx context.Context, send SendFunc) (FlushResult, error) {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	var res FlushResult
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		m, ok, err := q.head()
		if err != nil {
			return res, err
		}
		if !ok {
			return res, nil
		}

		sendErr := send(ctx, m)
		switch {
		case sendErr == nil:
			if err := q.db.Update(func(txn *badger.Txn) error {
				return txn.Delete(key(pendingPrefix, m.ID))
			}); err != nil {
				return res, fmt.Errorf("remove sent mutation %d: %w", m.ID, err)
			}
			res.Sent++
		case errors.Is(sendErr, ErrUnreachable), errors.Is(sendErr, context.Canceled), errors.Is(sendErr, context.DeadlineExceeded):
			return res, sendErr
		default:
			if err := q.fail(m, sendErr); err != nil {
				return res, err
			}
			res.Failed++
		}
	}
}

// Retry moves a failed mutation back to pending at its original position
func (q *Queue) Retry(id uint64) error {
	return q.db.Update(func(txn *badger.Txn) error {
		f, err := getFailure(txn, id)
		if err != nil {
			return err
		}
		data, err := json.Marshal(f.Mutation)
		if err != nil {
			return err
		}
		if err := txn.Set(key(pendingPrefix, id), data); err != nil {
			return err
		}
		return txn.Delete(key(failedPrefix, id))
	})
}

// Discard drops a failed mutation for good
func (q *Queue) Discard(id uint64) error {
	return q.db.Update(func(txn *badger.Txn) error {
		if _, err := getFailure(txn, id); err != nil {
			return err
		}
		return txn.Delete(key(failedPrefix, id))
	})
}

// DropPending removes every pending mutation for which match returns true
// and reports how many went
func (q *Queue) DropPending(match func(Mutation) bool) (int, error) {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	dropped := 0
	err := q.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		var doomed [][]byte
		for it.Seek(pendingPrefix); it.ValidForPrefix(pendingPrefix); it.Next() {
			var m Mutation
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				it.Close()
				return err
			}
			if match(m) {
				doomed = append(doomed, it.Item().KeyCopy(nil))
			}
		}
		it.Close()

		for _, k := range doomed {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		dropped = len(doomed)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("drop pending mutations: %w", err)
	}
	return dropped, nil
}

func (q *Queue) fail(m Mutation, cause error) error {
	data, err := json.Marshal(Failure{Mutation: m, Error: cause.Error(), FailedAt: q.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode failure: %w", err)
	}
	return q.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key(failedPrefix, m.ID), data); err != nil {
			return err
		}
		return txn.Delete(key(pendingPrefix, m.ID))
	})
}

// head returns the oldest pending mutation
func (q *Queue) head() (m Mutation, ok bool, err error) {
	err = q.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		it.Seek(pendingPrefix)
		if !it.ValidForPrefix(pendingPrefix) {
			return nil
		}
		ok = true
		return it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		})
	})
	return m, ok, err
}

func (q *Queue) scan(prefix []byte, fn func(val []byte) error) error {
	return q.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

func getFailure(txn *badger.Txn, id uint64) (Failure, error) {
	var f Failure
	item, err := txn.Get(key(failedPrefix, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return f, fmt.Errorf("failed mutation %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return f, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &f)
	})
	return f, err
}

// key orders numerically under byte-wise iteration
func key(prefix []byte, id uint64) []byte {
	k := make([]byte, len(prefix)+8)
	copy(k, prefix)
	binary.BigEndian.PutUint64(k[len(prefix):], id)
	return k
}
