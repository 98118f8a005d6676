package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"repe/internal/client/display"
	"repe/internal/client/offline"
	"repe/internal/server/core"
)

// ErrQueued is returned when a write was stored in the offline queue instead of sent
var ErrQueued = errors.New("server unreachable, request queued")

// APIError is an error envelope returned by the server
type APIError struct {
	Status  int
	Code    string
	Message string
	Details string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

type HealthResponse struct {
	Status  string `json:"status"`
	Time    int64  `json:"time"`
	Storage string `json:"storage"`
}

type envelope struct {
	Success    bool                `json:"success"`
	Data       json.RawMessage     `json:"data"`
	Pagination *core.Pagination    `json:"pagination"`
	Cursor     string              `json:"cursor"`
	HasMore    *bool               `json:"hasMore"`
	Error      *core.ErrorResponse `json:"error"`
}

type Client struct {
	BaseURL    string
	AuthToken  string
	HTTPClient *http.Client
	Verbose    bool
	Out        io.Writer

	queue *offline.Queue
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Out: os.Stdout,
	}
}

func (c *Client) SetVerbose(v bool) {
	c.Verbose = v
}

// SetBaseURL updates the API base URL for the client
func (c *Client) SetBaseURL(url string) {
	c.BaseURL = strings.TrimRight(url, "/")
}

func (c *Client) SetToken(token string) {
	c.AuthToken = token
}

// AttachQueue makes writes that cannot reach the server land in q
func (c *Client) AttachQueue(q *offline.Queue) {
	c.queue = q
}

func (c *Client) Queue() *offline.Queue {
	return c.queue
}

// Direct returns a copy of c that reports unreachable writes as errors
// instead of queueing them
func (c *Client) Direct() *Client {
	direct := *c
	direct.queue = nil
	return &direct
}

// do sends a request, queueing writes offline when the server cannot be reached
func (c *Client) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, err
		}
	}

	env, err := c.send(ctx, method, path, payload)
	if err != nil && errors.Is(err, offline.ErrUnreachable) && c.queue != nil && method != http.MethodGet {
		m, qerr := c.queue.Enqueue(offline.Mutation{Method: method, Path: path, Body: payload})
		if qerr != nil {
			return nil, errors.Join(err, qerr)
		}
		fmt.Fprintln(c.Out, display.Yellow("[QUEUED] %s %s as #%d", method, path, m.ID))
		return nil, fmt.Errorf("%w (#%d)", ErrQueued, m.ID)
	}
	return env, err
}

// Send replays a queued mutation; it is the offline queue's SendFunc
func (c *Client) Send(ctx context.Context, m offline.Mutation) error {
	_, err := c.send(ctx, m.Method, m.Path, m.Body)
	return err
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (*envelope, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	if c.Verbose {
		fmt.Fprintln(c.Out, display.Blue("[API] %s %s", method, path))
		if payload != nil {
			fmt.Fprintln(c.Out, display.Cyan("Request Body:"))
			display.PrettyPrintJSON(c.Out, json.RawMessage(payload))
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", offline.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if c.Verbose {
		status := display.Green
		if resp.StatusCode >= 400 {
			status = display.Red
		}
		fmt.Fprintln(c.Out, status("[%d %s]", resp.StatusCode, http.StatusText(resp.StatusCode)))
		if len(respBody) > 0 && json.Valid(respBody) {
			display.PrettyPrintJSON(c.Out, json.RawMessage(respBody))
		}
	}

	var env envelope
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &env); err != nil && resp.StatusCode < 400 {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Code: "HTTP_ERROR", Message: http.StatusText(resp.StatusCode)}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return nil, apiErr
	}
	return &env, nil
}

// decode unmarshals the envelope's data into result
func decode[T any](env *envelope, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	var result T
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &result); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	return &result, nil
}

// API Methods

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", offline.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("decode health: %w", err)
	}
	return &health, nil
}

func (c *Client) ListExercises(ctx context.Context, search, category string, limit, offset int) ([]core.Exercise, *core.Pagination, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if category != "" {
		q.Set("category", category)
	}
	setPage(q, limit, offset)

	env, err := c.do(ctx, http.MethodGet, withQuery("/api/exercises", q), nil)
	exercises, err := decode[[]core.Exercise](env, err)
	if err != nil {
		return nil, nil, err
	}
	return *exercises, env.Pagination, nil
}

func (c *Client) CreateExercise(ctx context.Context, req core.CreateExerciseRequest) (*core.Exercise, error) {
	return decode[core.Exercise](c.do(ctx, http.MethodPost, "/api/exercises", req))
}

func (c *Client) ListWorkouts(ctx context.Context, limit, offset int) ([]core.Workout, *core.Pagination, error) {
	q := url.Values{}
	setPage(q, limit, offset)

	env, err := c.do(ctx, http.MethodGet, withQuery("/api/workouts", q), nil)
	workouts, err := decode[[]core.Workout](env, err)
	if err != nil {
		return nil, nil, err
	}
	return *workouts, env.Pagination, nil
}

func (c *Client) GetWorkout(ctx context.Context, id string) (*core.WorkoutDetail, error) {
	return decode[core.WorkoutDetail](c.do(ctx, http.MethodGet, "/api/workouts/"+url.PathEscape(id), nil))
}

// SaveWorkout creates or replaces the workout at req.ID, which the caller assigns
// so that a queued save replays idempotently
func (c *Client) SaveWorkout(ctx context.Context, req core.UpsertWorkoutRequest) (*core.WorkoutDetail, error) {
	if req.ID == "" {
		return decode[core.WorkoutDetail](c.do(ctx, http.MethodPost, "/api/workouts", req))
	}
	return decode[core.WorkoutDetail](c.do(ctx, http.MethodPut, "/api/workouts/"+url.PathEscape(req.ID), req))
}

func (c *Client) DeleteWorkout(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/workouts/"+url.PathEscape(id), nil)
	return err
}

func (c *Client) AddWorkoutExercise(ctx context.Context, workoutID string, req core.AddWorkoutExerciseRequest) (*core.WorkoutDetail, error) {
	return decode[core.WorkoutDetail](c.do(ctx, http.MethodPost, "/api/workouts/"+url.PathEscape(workoutID)+"/exercises", req))
}

func (c *Client) AddSet(ctx context.Context, workoutExerciseID string, req core.SetRequest) (*core.Set, error) {
	return decode[core.Set](c.do(ctx, http.MethodPost, "/api/exercises/"+url.PathEscape(workoutExerciseID)+"/sets", req))
}

func (c *Client) UpdateSet(ctx context.Context, workoutExerciseID, setID string, req core.UpdateSetRequest) (*core.Set, error) {
	path := "/api/exercises/" + url.PathEscape(workoutExerciseID) + "/sets/" + url.PathEscape(setID)
	return decode[core.Set](c.do(ctx, http.MethodPut, path, req))
}

func (c *Client) DeleteSet(ctx context.Context, workoutExerciseID, setID string) error {
	path := "/api/exercises/" + url.PathEscape(workoutExerciseID) + "/sets/" + url.PathEscape(setID)
	_, err := c.do(ctx, http.MethodDelete, path, nil)
	return err
}

// ListHistory fetches one page; pass the previous page's cursor to continue
func (c *Client) ListHistory(ctx context.Context, cursor string, limit int) (*core.HistoryPage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	setPage(q, limit, 0)

	env, err := c.do(ctx, http.MethodGet, withQuery("/api/history", q), nil)
	entries, err := decode[[]core.HistoryEntry](env, err)
	if err != nil {
		return nil, err
	}
	page := &core.HistoryPage{Data: *entries, Cursor: env.Cursor}
	if env.HasMore != nil {
		page.HasMore = *env.HasMore
	}
	return page, nil
}

func (c *Client) CreateHistory(ctx context.Context, req core.HistoryRequest) (*core.HistoryEntry, error) {
	return decode[core.HistoryEntry](c.do(ctx, http.MethodPost, "/api/history", req))
}

func (c *Client) BackfillHistory(ctx context.Context, entries []core.HistoryRequest) (*core.BackfillResult, error) {
	return decode[core.BackfillResult](c.do(ctx, http.MethodPost, "/api/history/backfill", core.BackfillRequest{Entries: entries}))
}

func (c *Client) HistoryStats(ctx context.Context) (*core.HistoryStats, error) {
	return decode[core.HistoryStats](c.do(ctx, http.MethodGet, "/api/history/stats", nil))
}

func (c *Client) GetPreferences(ctx context.Context) (*core.UserSettings, error) {
	return decode[core.UserSettings](c.do(ctx, http.MethodGet, "/api/preferences", nil))
}

func (c *Client) SavePreferences(ctx context.Context, req core.PreferencesRequest) (*core.UserSettings, error) {
	return decode[core.UserSettings](c.do(ctx, http.MethodPut, "/api/preferences", req))
}

// RawRequest performs a raw HTTP request for debugging purposes
func (c *Client) RawRequest(ctx context.Context, method, path, body string) (json.RawMessage, error) {
	var payload any
	if body != "" {
		if !json.Valid([]byte(body)) {
			return nil, fmt.Errorf("body is not valid JSON")
		}
		payload = json.RawMessage(body)
	}
	env, err := c.do(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func setPage(q url.Values, limit, offset int) {
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
