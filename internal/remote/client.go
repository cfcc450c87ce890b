// Package remote is the HTTP gateway to the backend REST API. It is a thin,
// stateless client: every call maps to one request, non-2xx responses become
// KindRemoteRejected errors carrying the status code, and transport failures
// become KindNetworkUnavailable so the sync engine can treat them as "retry
// later" rather than "server said no".
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gymsync/internal/syncerr"
)

// TokenSource supplies the bearer token attached to every API request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client talks to the backend API.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// NewClient creates a gateway client. tokens may be nil for unauthenticated
// use (login, register).
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.baseURL }

// do sends one JSON request. A nil out skips body decoding. okNotFound makes
// a 404 count as success (idempotent deletes).
func (c *Client) do(ctx context.Context, method, path string, body, out any, okNotFound bool) error {
	op := strings.ToLower(method) + " " + path

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return syncerr.Wrap(syncerr.KindNetworkUnavailable, op, err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return syncerr.Wrap(syncerr.KindNetworkUnavailable, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && okNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for diagnostics, then discard.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return syncerr.New(syncerr.KindRemoteRejected, op).
			With("status", resp.StatusCode).
			With("body", strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// --- Programs ---

func (c *Client) CreateProgram(ctx context.Context, p ProgramPayload) (*Program, error) {
	var out Program
	if err := c.do(ctx, http.MethodPost, "/api/v1/programs", p, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProgram(ctx context.Context, id string, p ProgramPayload) (*Program, error) {
	var out Program
	path := "/api/v1/programs/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPut, path, p, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProgram removes the program remotely. A 404 is success: the server
// already doesn't know the record.
func (c *Client) DeleteProgram(ctx context.Context, id string) error {
	path := "/api/v1/programs/" + url.PathEscape(id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, true)
}

func (c *Client) ListPrograms(ctx context.Context, profileID string) ([]Program, error) {
	var out []Program
	path := "/api/v1/programs?profileId=" + url.QueryEscape(profileID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Workouts ---

func (c *Client) CreateWorkout(ctx context.Context, programID string, w WorkoutPayload) (*Workout, error) {
	var out Workout
	path := "/api/v1/programs/" + url.PathEscape(programID) + "/workouts"
	if err := c.do(ctx, http.MethodPost, path, w, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateWorkout(ctx context.Context, id string, w WorkoutPayload) (*Workout, error) {
	var out Workout
	path := "/api/v1/workouts/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPut, path, w, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteWorkout(ctx context.Context, id string) error {
	path := "/api/v1/workouts/" + url.PathEscape(id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, true)
}

func (c *Client) ListWorkouts(ctx context.Context, programID string) ([]Workout, error) {
	var out []Workout
	path := "/api/v1/programs/" + url.PathEscape(programID) + "/workouts"
	if err := c.do(ctx, http.MethodGet, path, nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Workout exercises ---

func (c *Client) CreateExercise(ctx context.Context, workoutID string, e ExercisePayload) (*Exercise, error) {
	var out Exercise
	path := "/api/v1/workouts/" + url.PathEscape(workoutID) + "/exercises"
	if err := c.do(ctx, http.MethodPost, path, e, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateExercise(ctx context.Context, id string, e ExercisePayload) (*Exercise, error) {
	var out Exercise
	path := "/api/v1/exercises/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPut, path, e, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteExercise(ctx context.Context, id string) error {
	path := "/api/v1/exercises/" + url.PathEscape(id)
	return c.do(ctx, http.MethodDelete, path, nil, nil, true)
}

func (c *Client) ListExercises(ctx context.Context, workoutID string) ([]Exercise, error) {
	var out []Exercise
	path := "/api/v1/workouts/" + url.PathEscape(workoutID) + "/exercises"
	if err := c.do(ctx, http.MethodGet, path, nil, &out, false); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Media ---

// PresignUpload asks the backend for a presigned PUT URL.
func (c *Client) PresignUpload(ctx context.Context, req PresignRequest) (*PresignResponse, error) {
	var out PresignResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/uploads/presign", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadFile PUTs a file body to a presigned URL. The URL is already signed,
// so no Authorization header is attached.
func (c *Client) UploadFile(ctx context.Context, putURL, contentType string, body io.Reader, size int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, putURL, body)
	if err != nil {
		return fmt.Errorf("upload: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = size

	resp, err := c.http.Do(req)
	if err != nil {
		return syncerr.Wrap(syncerr.KindNetworkUnavailable, "upload.put", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return syncerr.New(syncerr.KindRemoteRejected, "upload.put").
			With("status", resp.StatusCode)
	}
	return nil
}

// --- Auth ---

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login",
		Credentials{Email: email, Password: password}, &out, false)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, name, email, password string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/auth/register",
		Credentials{Name: name, Email: email, Password: password}, nil, false)
}
