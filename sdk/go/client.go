// Package reportsdk is a small HTTP client for the factory report API, plus a
// Poller for dashboards that refresh on an interval.
package reportsdk

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
)

// Client is a minimal factory report API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Report mirrors the API report model.
type Report struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Location           string    `json:"location"`
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	Priority           string    `json:"priority"`
	Status             string    `json:"status"`
	AssignedTechnician *string   `json:"assignedTechnician,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Stats is the status breakdown returned by /reports/stats.
type Stats struct {
	Total      int `json:"total"`
	New        int `json:"new"`
	InProgress int `json:"inProgress"`
	Resolved   int `json:"resolved"`
}

// User is the authenticated account.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Session is the login response.
type Session struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewReport is the payload for CreateReport.
type NewReport struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Location    string  `json:"location"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Priority    string  `json:"priority"`
}

// ListOptions filter and order ListReports. Empty fields are omitted.
type ListOptions struct {
	Status             string
	Priority           string
	Location           string
	Search             string
	AssignedTechnician string
	Sort               string
	Order              string
}

func (o ListOptions) encode() string {
	q := url.Values{}
	for key, value := range map[string]string{
		"status":             o.Status,
		"priority":           o.Priority,
		"location":           o.Location,
		"search":             o.Search,
		"assignedTechnician": o.AssignedTechnician,
		"sort":               o.Sort,
		"order":              o.Order,
	} {
		if value != "" {
			q.Set(key, value)
		}
	}
	return q.Encode()
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login authenticates and stores the bearer token on the client.
func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	body := map[string]string{"username": username, "password": password}
	var resp Session
	if err := c.do(ctx, http.MethodPost, "auth/login", body, &resp); err != nil {
		return Session{}, err
	}
	c.BearerToken = resp.Token
	return resp, nil
}

// Logout ends the session and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "auth/logout", nil, nil); err != nil {
		return err
	}
	c.BearerToken = ""
	return nil
}

// Me returns the logged-in user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var resp User
	err := c.do(ctx, http.MethodGet, "auth/me", nil, &resp)
	return resp, err
}

// ListReports returns reports matching opts.
func (c *Client) ListReports(ctx context.Context, opts ListOptions) ([]Report, error) {
	endpoint := "reports"
	if q := opts.encode(); q != "" {
		endpoint += "?" + q
	}
	var resp []Report
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// GetReport fetches a report by id.
func (c *Client) GetReport(ctx context.Context, id string) (Report, error) {
	var resp Report
	err := c.do(ctx, http.MethodGet, reportPath(id, ""), nil, &resp)
	return resp, err
}

// CreateReport files a new report.
func (c *Client) CreateReport(ctx context.Context, in NewReport) (Report, error) {
	var resp Report
	err := c.do(ctx, http.MethodPost, "reports", in, &resp)
	return resp, err
}

// Claim assigns a New report to the caller.
func (c *Client) Claim(ctx context.Context, id string) (Report, error) {
	var resp Report
	err := c.do(ctx, http.MethodPost, reportPath(id, "claim"), nil, &resp)
	return resp, err
}

// Resolve closes an In Progress report.
func (c *Client) Resolve(ctx context.Context, id string) (Report, error) {
	var resp Report
	err := c.do(ctx, http.MethodPost, reportPath(id, "resolve"), nil, &resp)
	return resp, err
}

// Reassign hands an In Progress report to another technician.
func (c *Client) Reassign(ctx context.Context, id, technician string) (Report, error) {
	var resp Report
	body := map[string]string{"assignedTechnician": technician}
	err := c.do(ctx, http.MethodPost, reportPath(id, "reassign"), body, &resp)
	return resp, err
}

// Delete removes a Resolved report.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, reportPath(id, ""), nil, nil)
}

// Stats returns report counts by status.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var resp Stats
	err := c.do(ctx, http.MethodGet, "reports/stats", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return newAPIError(resp.StatusCode, b)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}

func reportPath(id, action string) string {
	p := "reports/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
