package helpdesk

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/config"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util"
)

type recordedRequest struct {
	method string
	path   string
	body   map[string]any
	apiKey string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
	status   int
	response string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{status: http.StatusOK, response: "{}"}
	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{method: r.Method, path: r.URL.Path}
		rec.apiKey, _, _ = r.BasicAuth()
		if raw, err := io.ReadAll(r.Body); err == nil && len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.body)
		}
		ts.requests = append(ts.requests, rec)
		w.WriteHeader(ts.status)
		_, _ = w.Write([]byte(ts.response))
	}))
	t.Cleanup(ts.server.Close)
	return ts
}

func newTestClient(ts *testServer) Client {
	return NewClient(config.HelpdeskConfig{
		APIKey:         "secret-key",
		BaseURL:        ts.server.URL,
		TimeoutSeconds: 5,
	}, zap.NewNop())
}

func TestGetTicket(t *testing.T) {
	ts := newTestServer(t)
	ts.response = `{"id":42,"subject":"printer on fire","description":"smoke everywhere","requester_id":7,"priority":2}`
	client := newTestClient(ts)

	payload, err := client.GetTicket(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, int64(42), payload.ExternalID)
	assert.Equal(t, "printer on fire", payload.Subject)
	assert.Equal(t, "smoke everywhere", payload.Description)
	assert.Equal(t, "7", payload.CustomerContact)
	assert.Equal(t, 2, payload.Priority)

	require.Len(t, ts.requests, 1)
	assert.Equal(t, http.MethodGet, ts.requests[0].method)
	assert.Equal(t, "/tickets/42", ts.requests[0].path)
	assert.Equal(t, "secret-key", ts.requests[0].apiKey)
}

func TestGetTicketDefaultsPriority(t *testing.T) {
	ts := newTestServer(t)
	ts.response = `{"id":42,"subject":"s","description":"d","requester_id":7}`
	client := newTestClient(ts)

	payload, err := client.GetTicket(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 1, payload.Priority)
}

func TestGetTicketNotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.status = http.StatusNotFound
	client := newTestClient(ts)

	_, err := client.GetTicket(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAddNote(t *testing.T) {
	ts := newTestServer(t)
	ts.status = http.StatusCreated
	client := newTestClient(ts)

	err := client.AddNote(context.Background(), 42, "try resetting it", true)
	require.NoError(t, err)

	require.Len(t, ts.requests, 1)
	req := ts.requests[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/tickets/42/notes", req.path)
	assert.Equal(t, "try resetting it", req.body["body"])
	assert.Equal(t, true, req.body["private"])
}

func TestUpdateStatus(t *testing.T) {
	ts := newTestServer(t)
	client := newTestClient(ts)

	err := client.UpdateStatus(context.Background(), 42, StatusPending)
	require.NoError(t, err)

	require.Len(t, ts.requests, 1)
	req := ts.requests[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/tickets/42", req.path)
	assert.Equal(t, float64(StatusPending), req.body["status"])
}

func TestResolve(t *testing.T) {
	ts := newTestServer(t)
	client := newTestClient(ts)

	err := client.Resolve(context.Background(), 42, "fixed by assistant")
	require.NoError(t, err)

	require.Len(t, ts.requests, 1)
	req := ts.requests[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, float64(StatusResolved), req.body["status"])
	assert.Equal(t, "fixed by assistant", req.body["resolution"])
}

func TestEscalate(t *testing.T) {
	ts := newTestServer(t)
	ts.status = http.StatusOK
	client := newTestClient(ts)

	err := client.Escalate(context.Background(), 42, "Complex issue")
	require.NoError(t, err)

	// A private note first, then the priority bump.
	require.Len(t, ts.requests, 2)

	note := ts.requests[0]
	assert.Equal(t, http.MethodPost, note.method)
	assert.Equal(t, "/tickets/42/notes", note.path)
	assert.Contains(t, note.body["body"], "ESCALATED TO HUMAN AGENT")
	assert.Contains(t, note.body["body"], "Complex issue")
	assert.Equal(t, true, note.body["private"])

	bump := ts.requests[1]
	assert.Equal(t, http.MethodPut, bump.method)
	assert.Equal(t, "/tickets/42", bump.path)
	assert.Equal(t, float64(PriorityHigh), bump.body["priority"])
}

func TestServerErrorSurfaces(t *testing.T) {
	ts := newTestServer(t)
	ts.status = http.StatusInternalServerError
	ts.response = `{"error":"boom"}`
	client := newTestClient(ts)

	err := client.UpdateStatus(context.Background(), 42, StatusOpen)
	require.Error(t, err)
	assert.False(t, apperrors.IsNotFound(err))
}

func TestTestConnection(t *testing.T) {
	ts := newTestServer(t)
	ts.response = `[]`
	client := newTestClient(ts)
	assert.True(t, client.TestConnection(context.Background()))

	ts.status = http.StatusUnauthorized
	assert.False(t, client.TestConnection(context.Background()))
}
