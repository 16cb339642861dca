package stagegatesdk

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

// Client is a minimal Stagegate HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
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

// WorkPackage represents the API work package model.
type WorkPackage struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	OwnerID   string `json:"owner_id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// HistoryEntry represents one append-only history row.
type HistoryEntry struct {
	ID            string  `json:"id"`
	WorkPackageID string  `json:"workpackage_id"`
	ActorID       *string `json:"actor_id"`
	Description   string  `json:"description"`
	CreatedAt     string  `json:"created_at"`
}

// WorkPackageListItem is a list entry with its embedded deployment record.
type WorkPackageListItem struct {
	WorkPackage
	Deployment json.RawMessage `json:"deployment"`
}

// PaginatedWorkPackages wraps list responses with cursors.
type PaginatedWorkPackages struct {
	Items      []WorkPackageListItem `json:"items"`
	NextCursor string                `json:"next_cursor,omitempty"`
}

// HistoryPage wraps history listings.
type HistoryPage struct {
	Items []HistoryEntry `json:"items"`
	Total int            `json:"total"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateWorkPackage creates a work package in the ideation stage.
func (c *Client) CreateWorkPackage(ctx context.Context, title, ownerID string) (WorkPackage, error) {
	body := map[string]any{
		"title":    title,
		"owner_id": ownerID,
	}
	var resp WorkPackage
	err := c.do(ctx, http.MethodPost, "v1/workpackages", body, &resp)
	return resp, err
}

// WorkPackages returns a page of work packages.
func (c *Client) WorkPackages(ctx context.Context, limit int, cursor string) (PaginatedWorkPackages, error) {
	endpoint := "v1/workpackages"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	if cursor != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint = fmt.Sprintf("%s%scursor=%s", endpoint, sep, url.QueryEscape(cursor))
	}
	var resp PaginatedWorkPackages
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// GetWorkPackage fetches a work package with its stage records. The stage
// records are returned raw so callers only decode the stages they care about.
func (c *Client) GetWorkPackage(ctx context.Context, id string) (WorkPackage, map[string]json.RawMessage, error) {
	var resp map[string]json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.wpPath(id, ""), nil, &resp); err != nil {
		return WorkPackage{}, nil, err
	}
	var wp WorkPackage
	b, _ := json.Marshal(resp)
	if err := json.Unmarshal(b, &wp); err != nil {
		return WorkPackage{}, nil, err
	}
	var stages map[string]json.RawMessage
	if raw, ok := resp["stages"]; ok {
		if err := json.Unmarshal(raw, &stages); err != nil {
			return wp, nil, err
		}
	}
	return wp, stages, nil
}

// History returns the full history of a work package, oldest first.
func (c *Client) History(ctx context.Context, id string) (HistoryPage, error) {
	var resp HistoryPage
	err := c.do(ctx, http.MethodGet, c.wpPath(id, "history"), nil, &resp)
	return resp, err
}

// Advance moves a work package to the next stage without gate checks.
func (c *Client) Advance(ctx context.Context, id string) (WorkPackage, error) {
	return c.action(ctx, id, "advance", nil)
}

// Cancel cancels a work package.
func (c *Client) Cancel(ctx context.Context, id string) (WorkPackage, error) {
	return c.action(ctx, id, "cancel", nil)
}

// ApproveFeasibility approves the feasibility assessment and advances to
// scoping.
func (c *Client) ApproveFeasibility(ctx context.Context, id string) (WorkPackage, error) {
	return c.action(ctx, id, "feasibility/approve", nil)
}

// RejectFeasibility rejects the feasibility assessment with a reason.
func (c *Client) RejectFeasibility(ctx context.Context, id, reason string) (WorkPackage, error) {
	return c.action(ctx, id, "feasibility/reject", map[string]any{"reason": reason})
}

// SubmitScoping submits the scoping assessment and advances to scheduling.
func (c *Client) SubmitScoping(ctx context.Context, id string) (WorkPackage, error) {
	return c.action(ctx, id, "scoping/submit", nil)
}

// SubmitScheduling submits the scheduling plan to the DCGG.
func (c *Client) SubmitScheduling(ctx context.Context, id string) (WorkPackage, error) {
	return c.action(ctx, id, "scheduling/submit", nil)
}

// Schedule records the change board decision and advances to detailed design.
func (c *Client) Schedule(ctx context.Context, id string) (WorkPackage, error) {
	return c.action(ctx, id, "scheduling/schedule", nil)
}

// RequestUAT assigns a tester and requests user acceptance testing.
func (c *Client) RequestUAT(ctx context.Context, id, testerID string) (WorkPackage, error) {
	return c.action(ctx, id, "testing/uat-request", map[string]any{"uat_tester_id": testerID})
}

// RequestServiceAcceptance requests service acceptance after UAT approval.
func (c *Client) RequestServiceAcceptance(ctx context.Context, id string) (WorkPackage, error) {
	return c.action(ctx, id, "testing/service-acceptance-request", nil)
}

// SubmitTesting submits the testing record and advances to deployed.
func (c *Client) SubmitTesting(ctx context.Context, id string) (WorkPackage, error) {
	return c.action(ctx, id, "testing/submit", nil)
}

// AcceptDeploymentService records service acceptance of the deployment.
func (c *Client) AcceptDeploymentService(ctx context.Context, id string) (WorkPackage, error) {
	return c.action(ctx, id, "deployment/service-accept", nil)
}

// ApproveDeployment approves the deployment and completes the work package.
func (c *Client) ApproveDeployment(ctx context.Context, id string) (WorkPackage, error) {
	return c.action(ctx, id, "deployment/approve", nil)
}

// UpdateStage patches the named stage record with the given fields. Stage is
// the URL segment, e.g. "feasibility" or "detailed-design".
func (c *Client) UpdateStage(ctx context.Context, id, stage string, fields map[string]any) (json.RawMessage, error) {
	var resp json.RawMessage
	err := c.do(ctx, http.MethodPatch, c.wpPath(id, stage), fields, &resp)
	return resp, err
}

// RecordDeployment posts deployment details, which requires a deployment date.
func (c *Client) RecordDeployment(ctx context.Context, id string, fields map[string]any) (json.RawMessage, error) {
	var resp json.RawMessage
	err := c.do(ctx, http.MethodPost, c.wpPath(id, "deployment"), fields, &resp)
	return resp, err
}

func (c *Client) action(ctx context.Context, id, action string, body map[string]any) (WorkPackage, error) {
	var resp WorkPackage
	err := c.do(ctx, http.MethodPost, c.wpPath(id, action), body, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) wpPath(id, p string) string {
	base := fmt.Sprintf("v1/workpackages/%s", url.PathEscape(id))
	if p == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(p, "/")
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
