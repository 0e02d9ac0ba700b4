package helpdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/config"
	"github.com/spec-kit/ticket-triage/internal/domain"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util"
)

// Status is a helpdesk ticket status code. The numeric mapping is
// defined by the helpdesk API.
type Status int

const (
	StatusOpen     Status = 2
	StatusPending  Status = 3
	StatusResolved Status = 5
	StatusClosed   Status = 6
)

// PriorityHigh is the priority code used when escalating.
const PriorityHigh = 3

// Client is the surface of the helpdesk API the triage pipeline needs.
type Client interface {
	GetTicket(ctx context.Context, id int64) (*domain.TicketPayload, error)
	AddNote(ctx context.Context, id int64, body string, private bool) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	Resolve(ctx context.Context, id int64, note string) error
	Escalate(ctx context.Context, id int64, reason string) error
	TestConnection(ctx context.Context) bool
}

type httpClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds the HTTP helpdesk client. BaseURL overrides the
// domain-derived URL, which tests and self-hosted deployments use.
func NewClient(cfg config.HelpdeskConfig, logger *zap.Logger) Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.freshdesk.com/api/v2", cfg.Domain)
	}
	if cfg.Domain == "" && cfg.APIKey == "" && cfg.BaseURL == "" {
		logger.Warn("helpdesk credentials not configured")
	}
	return &httpClient{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout()},
		logger:  logger,
	}
}

type ticketResponse struct {
	ID          int64  `json:"id"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	RequesterID int64  `json:"requester_id"`
	Priority    int    `json:"priority"`
}

func (c *httpClient) GetTicket(ctx context.Context, id int64) (*domain.TicketPayload, error) {
	var resp ticketResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("tickets/%d", id), nil, &resp); err != nil {
		return nil, err
	}
	payload := &domain.TicketPayload{
		ExternalID:      resp.ID,
		Subject:         resp.Subject,
		Description:     resp.Description,
		CustomerContact: strconv.FormatInt(resp.RequesterID, 10),
		Priority:        resp.Priority,
	}
	if payload.Priority == 0 {
		payload.Priority = 1
	}
	return payload, nil
}

func (c *httpClient) AddNote(ctx context.Context, id int64, body string, private bool) error {
	data := map[string]any{
		"body":    body,
		"private": private,
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("tickets/%d/notes", id), data, nil)
}

func (c *httpClient) UpdateStatus(ctx context.Context, id int64, status Status) error {
	data := map[string]any{"status": int(status)}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("tickets/%d", id), data, nil)
}

func (c *httpClient) Resolve(ctx context.Context, id int64, note string) error {
	data := map[string]any{
		"status":     int(StatusResolved),
		"resolution": note,
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("tickets/%d", id), data, nil)
}

// Escalate posts a private escalation note and raises the ticket
// priority so it surfaces in the human agents' queue.
func (c *httpClient) Escalate(ctx context.Context, id int64, reason string) error {
	note := fmt.Sprintf("ESCALATED TO HUMAN AGENT\n\nReason: %s\n\nThis ticket requires human intervention.", reason)
	if err := c.AddNote(ctx, id, note, true); err != nil {
		c.logger.Warn("escalation note failed", zap.Int64("ticket_id", id), zap.Error(err))
	}
	data := map[string]any{"priority": PriorityHigh}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("tickets/%d", id), data, nil)
}

func (c *httpClient) TestConnection(ctx context.Context) bool {
	if err := c.do(ctx, http.MethodGet, "tickets", nil, nil); err != nil {
		c.logger.Warn("helpdesk connection test failed", zap.Error(err))
		return false
	}
	return true
}

func (c *httpClient) do(ctx context.Context, method, endpoint string, data any, out any) error {
	var body io.Reader
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	// The helpdesk API authenticates with the API key as username.
	req.SetBasicAuth(c.apiKey, "X")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewExternalServiceError(endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return apperrors.NewNotFound("helpdesk ticket", map[string]any{"endpoint": endpoint})
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.NewExternalServiceError(endpoint,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(text)))
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
