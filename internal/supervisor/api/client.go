package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Sentinels for the control plane's error taxonomy. The supervisor's skip
// paths branch on Conflict and Forbidden.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// Client talks to the control plane with a cached bearer token. On a 401 it
// re-authenticates exactly once and retries; a second 401 propagates.
type Client struct {
	baseURL  string
	email    string
	password string
	http     *http.Client

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL, email, password string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		email:    email,
		password: password,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Login acquires a fresh token and replaces the cached one.
func (c *Client) Login(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{
		"email":    c.email,
		"password": c.password,
	})
	if err != nil {
		return fmt.Errorf("encode login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/session", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed with status %d: %s", resp.StatusCode, readDetail(resp.Body))
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}

	c.mu.Lock()
	c.token = token.AccessToken
	c.mu.Unlock()
	return nil
}

func (c *Client) ListTasks(ctx context.Context, status string) ([]TaskSummary, error) {
	var tasks []TaskSummary
	if err := c.do(ctx, http.MethodGet, "/tasks?status="+status, nil, &tasks); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (c *Client) Claim(ctx context.Context, taskID uuid.UUID) (ClaimInfo, error) {
	var info ClaimInfo
	if err := c.do(ctx, http.MethodPost, "/tasks/"+taskID.String()+"/claim", nil, &info); err != nil {
		return ClaimInfo{}, fmt.Errorf("claim task %s: %w", taskID, err)
	}
	return info, nil
}

func (c *Client) StartAttempt(ctx context.Context, taskID uuid.UUID, environmentID *string) (AttemptRef, error) {
	payload := map[string]any{}
	if environmentID != nil {
		payload["environment_id"] = *environmentID
	}

	var attempt AttemptRef
	if err := c.do(ctx, http.MethodPost, "/tasks/"+taskID.String()+"/attempts", payload, &attempt); err != nil {
		return AttemptRef{}, fmt.Errorf("start attempt for task %s: %w", taskID, err)
	}
	return attempt, nil
}

func (c *Client) FetchDetail(ctx context.Context, taskID uuid.UUID) (TaskDetail, error) {
	var detail TaskDetail
	if err := c.do(ctx, http.MethodGet, "/tasks/"+taskID.String(), nil, &detail); err != nil {
		return TaskDetail{}, fmt.Errorf("fetch task %s: %w", taskID, err)
	}
	return detail, nil
}

func (c *Client) CompleteAttempt(ctx context.Context, attemptID uuid.UUID, outcome Outcome) error {
	if err := c.do(ctx, http.MethodPost, "/tasks/attempts/"+attemptID.String()+"/complete", outcome, nil); err != nil {
		return fmt.Errorf("complete attempt %s: %w", attemptID, err)
	}
	return nil
}

// do sends an authenticated request. Every call path shares the 401 handling:
// re-login once, retry once.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	resp, err := c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if err := c.Login(ctx); err != nil {
			return fmt.Errorf("refresh token: %w", err)
		}
		if resp, err = c.send(ctx, method, path, payload); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, readDetail(resp.Body))
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, readDetail(resp.Body))
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, readDetail(resp.Body))
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, readDetail(resp.Body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, readDetail(resp.Body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// readDetail extracts the {"detail": ...} message from an error body, falling
// back to the raw text.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Detail != "" {
		return body.Detail
	}
	return strings.TrimSpace(string(data))
}
