package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/keyhaven/assignment-desk/internal/dtos"
	"github.com/keyhaven/assignment-desk/internal/models"
	"github.com/keyhaven/assignment-desk/internal/routes"
	"github.com/keyhaven/assignment-desk/internal/utils"
)

/*
AgentAPI is the agent-scoped slice of the assignment-service contract.
Calls rely on the bearer session token; no API key is sent.
*/
type AgentAPI interface {
	FetchPendingAssignments(ctx context.Context) ([]*models.AssignmentNotification, error)
	Accept(ctx context.Context, notificationID uuid.UUID) error
	Reject(ctx context.Context, notificationID uuid.UUID, reason string) error
}

/*
AdminAPI is the admin-scoped slice. Every call carries the X-API-Key
header; the server is the authorization boundary, the client only
surfaces what it gets back.
*/
type AdminAPI interface {
	ListUnassignedProperties(ctx context.Context) ([]models.Property, error)
	ListPendingAssignments(ctx context.Context) ([]models.Assignment, error)
	AssignByPincode(ctx context.Context, propertyID uuid.UUID, pincode string) error
	ForceAccept(ctx context.Context, assignmentID, agentID uuid.UUID) error
}

// Client talks to the remote assignment service. All configuration is
// injected at construction; there is no module-level state.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	sessionToken string
	apiKey       string
}

type ClientOption func(*Client)

func WithSessionToken(token string) ClientOption {
	return func(c *Client) { c.sessionToken = token }
}

func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ AgentAPI = (*Client)(nil)
var _ AdminAPI = (*Client)(nil)

// ----------------------------------------------------------------
// Agent-scoped calls
// ----------------------------------------------------------------

func (c *Client) FetchPendingAssignments(ctx context.Context) ([]*models.AssignmentNotification, error) {
	var resp dtos.PendingAssignmentsResponse
	if err := c.do(ctx, http.MethodGet, routes.AgentPendingAssignments, nil, &resp); err != nil {
		return nil, err
	}

	// Normalize statuses once, here at the boundary. Items whose status
	// cannot be parsed are dropped with a warning rather than propagated.
	notifications := make([]*models.AssignmentNotification, 0, len(resp.Notifications))
	for i := range resp.Notifications {
		n, err := resp.Notifications[i].ToModel()
		if err != nil {
			utils.Logger.WithError(err).Warnf("Dropping pending assignment %s with unrecognized status", resp.Notifications[i].ID)
			continue
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}

func (c *Client) Accept(ctx context.Context, notificationID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, routes.AgentAssignmentAcceptPath(notificationID.String()), struct{}{}, nil)
}

func (c *Client) Reject(ctx context.Context, notificationID uuid.UUID, reason string) error {
	body := dtos.RejectRequest{Reason: reason}
	return c.do(ctx, http.MethodPost, routes.AgentAssignmentRejectPath(notificationID.String()), body, nil)
}

// ----------------------------------------------------------------
// Admin-scoped calls
// ----------------------------------------------------------------

func (c *Client) ListUnassignedProperties(ctx context.Context) ([]models.Property, error) {
	var resp dtos.UnassignedPropertiesResponse
	if err := c.do(ctx, http.MethodGet, routes.AdminUnassignedProperties, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Properties, nil
}

func (c *Client) ListPendingAssignments(ctx context.Context) ([]models.Assignment, error) {
	var resp dtos.PendingQueueResponse
	if err := c.do(ctx, http.MethodGet, routes.AdminPendingAssignments, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Assignments, nil
}

func (c *Client) AssignByPincode(ctx context.Context, propertyID uuid.UUID, pincode string) error {
	body := dtos.AssignByPincodeRequest{Pincode: pincode}
	return c.do(ctx, http.MethodPost, routes.AdminAssignByPincodePath(propertyID.String()), body, nil)
}

func (c *Client) ForceAccept(ctx context.Context, assignmentID, agentID uuid.UUID) error {
	body := dtos.ForceAcceptRequest{AgentID: agentID}
	return c.do(ctx, http.MethodPost, routes.AdminForceAcceptPath(assignmentID.String()), body, nil)
}

// ----------------------------------------------------------------
// Shared plumbing
// ----------------------------------------------------------------

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.sessionToken)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return utils.ErrUnauthorized
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return &TransportError{Err: fmt.Errorf("decode response: %w", err)}
			}
		}
		return nil
	}

	return c.mapFailure(resp)
}

// mapFailure turns a non-2xx response into the desk's error taxonomy.
// The backend answers either the standard {code,message} error body or the
// action-style {success,error} body; both are handled.
func (c *Client) mapFailure(resp *http.Response) error {
	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return &TransportError{Err: readErr}
	}

	var errBody struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Success *bool  `json:"success,omitempty"`
		Error   string `json:"error,omitempty"`
	}
	code := ""
	message := ""
	if err := json.Unmarshal(raw, &errBody); err == nil {
		code = errBody.Code
		if code == "" {
			code = errBody.Error
		}
		message = errBody.Message
	}

	switch code {
	case utils.ErrCodeAlreadyResponded:
		return utils.ErrAlreadyResponded
	case utils.ErrCodeAssignmentExpired:
		return utils.ErrAssignmentExpired
	case utils.ErrCodeNotFound:
		// The wire code does not say which resource was missing, so the
		// client reports only the generic sentinel.
		return utils.ErrNotFound
	}

	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	if code == "" {
		code = utils.ErrCodeInternal
	}
	return &ServerError{StatusCode: resp.StatusCode, Code: code, Message: message}
}
