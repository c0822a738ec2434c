package openremote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrPush is wrapped by every failed scheduler call.
var ErrPush = errors.New("openremote: push failed")

// Command is a single attribute write on the device asset.
type Command struct {
	Attribute string `json:"attribute"`
	Value     bool   `json:"value"`
}

// Action schedules a command at an instant.
type Action struct {
	At      time.Time `json:"at"`
	Command Command   `json:"command"`
}

// Schedule is the upsert payload. ScheduleID is the owning event's ID and
// doubles as the idempotency key.
type Schedule struct {
	ScheduleID string    `json:"scheduleId"`
	AssetID    string    `json:"assetId"`
	StartsAt   time.Time `json:"startsAt"`
	EndsAt     time.Time `json:"endsAt"`
	Timezone   string    `json:"timezone"`
	Actions    []Action  `json:"actions"`
}

// Client talks to the external scheduler API.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new scheduler API client.
func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Upsert creates or replaces the schedule keyed by s.ScheduleID. Repeating
// the call with the same payload restates the same schedule.
func (c *Client) Upsert(ctx context.Context, s Schedule) error {
	if s.ScheduleID == "" {
		return fmt.Errorf("%w: empty schedule id", ErrPush)
	}

	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: encoding schedule: %w", ErrPush, err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/schedules", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Idempotency-Key", s.ScheduleID)

	return c.do(req, "upsert schedule", false)
}

// Remove deletes the schedule. A schedule that is already gone counts as
// removed.
func (c *Client) Remove(ctx context.Context, scheduleID string) error {
	if scheduleID == "" {
		return fmt.Errorf("%w: empty schedule id", ErrPush)
	}

	req, err := c.newRequest(ctx, http.MethodDelete, "/schedules/"+url.PathEscape(scheduleID), nil)
	if err != nil {
		return err
	}

	return c.do(req, "delete schedule", true)
}

// Ping reports whether the scheduler API answers at all.
func (c *Client) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodHead, "/schedules", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	return resp.StatusCode < http.StatusInternalServerError
}

func (c *Client) do(req *http.Request, op string, notFoundOK bool) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPush, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if notFoundOK && resp.StatusCode == http.StatusNotFound {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%w: %s: status %d: %s", ErrPush, op, resp.StatusCode, bytes.TrimSpace(body))
}

// newRequest creates a new HTTP request with authentication.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrPush, err)
	}

	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}
