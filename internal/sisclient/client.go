package sisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rollcall/internal/roster"
)

// Client calls the upstream student information system (SIS) that owns the
// canonical student directory.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client. With skip set, FetchStudents returns a small
// sample roster so the service runs without an upstream SIS.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// sampleStudents stands in for the upstream when the client is skipped.
var sampleStudents = []roster.RawStudent{
	{"id": "default-1", "first_name": "Default", "last_name": "Student 1", "rollNo": "D001", "grade": "1", "section": "A"},
	{"id": "default-2", "first_name": "Default", "last_name": "Student 2", "rollNo": "D002", "grade": "2", "section": "B"},
}

// FetchStudents retrieves the raw student records. The upstream responds
// with either a bare JSON array or a {"students": [...]} wrapper; both are
// accepted. Records stay loosely typed for the roster mapper.
func (c *Client) FetchStudents(ctx context.Context) ([]roster.RawStudent, error) {
	if c.Skip {
		return sampleStudents, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/students", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sis error %s: %s", resp.Status, string(bodyBytes))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sis read failed: %w", err)
	}

	var records []roster.RawStudent
	if err := json.Unmarshal(body, &records); err == nil {
		return records, nil
	}
	var wrapped struct {
		Students []roster.RawStudent `json:"students"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return wrapped.Students, nil
}

// Health checks if the SIS is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("sis unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sis unhealthy: %s", resp.Status)
	}

	return nil
}
