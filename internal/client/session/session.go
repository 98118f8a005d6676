// Package session holds the interactive client's mutable state between commands.
package session

import (
	"context"
	"io"
	"os"
	"sync"

	"repe/internal/client/api"
	"repe/internal/client/commands"
	"repe/internal/filestore"
	"repe/internal/timer"
)

// Session implements commands.Session
type Session struct {
	Ctx        context.Context
	Writer     io.Writer
	APIBaseURL string
	Client     *api.Client
	Draft      *filestore.Store[commands.Draft]
	Verbose    bool

	mu             sync.Mutex
	currentWorkout string
	historyCursor  string
	units          string
	restSeconds    int
	timer          *timer.Timer
}

var _ commands.Session = (*Session)(nil)

// New builds a session against baseURL. The draft is kept at draftPath.
func New(ctx context.Context, baseURL, draftPath string) *Session {
	return &Session{
		Ctx:         ctx,
		Writer:      os.Stdout,
		APIBaseURL:  baseURL,
		Client:      api.New(baseURL),
		Draft:       filestore.New[commands.Draft](draftPath),
		units:       "metric",
		restSeconds: 90,
	}
}

func (s *Session) Context() context.Context {
	if s.Ctx == nil {
		return context.Background()
	}
	return s.Ctx
}

func (s *Session) Out() io.Writer {
	return s.Writer
}

func (s *Session) GetAPIBaseURL() string {
	return s.APIBaseURL
}

// SetAPIBaseURL points both the session and its client at url
func (s *Session) SetAPIBaseURL(url string) {
	s.APIBaseURL = url
	s.Client.SetBaseURL(url)
}

func (s *Session) GetClient() *api.Client {
	return s.Client
}

func (s *Session) GetCurrentWorkout() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentWorkout
}

func (s *Session) SetCurrentWorkout(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentWorkout = id
}

func (s *Session) GetHistoryCursor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyCursor
}

func (s *Session) SetHistoryCursor(cursor string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyCursor = cursor
}

func (s *Session) GetUnits() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.units
}

func (s *Session) SetUnits(units string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units = units
}

func (s *Session) GetRestSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restSeconds
}

func (s *Session) SetRestSeconds(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restSeconds = n
}

func (s *Session) GetTimer() *timer.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer
}

func (s *Session) SetTimer(t *timer.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer = t
}

func (s *Session) Drafts() *filestore.Store[commands.Draft] {
	return s.Draft
}

func (s *Session) IsVerbose() bool {
	return s.Verbose
}

// Close stops the timer if one is running
func (s *Session) Close() {
	if t := s.GetTimer(); t != nil {
		t.Close()
	}
}
