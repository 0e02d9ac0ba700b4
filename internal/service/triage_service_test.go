package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/config"
	"github.com/spec-kit/ticket-triage/internal/domain"
	"github.com/spec-kit/ticket-triage/internal/events"
	"github.com/spec-kit/ticket-triage/internal/helpdesk"
	"github.com/spec-kit/ticket-triage/internal/observability"
	"github.com/spec-kit/ticket-triage/internal/repository"
	"github.com/spec-kit/ticket-triage/internal/triage"
	apperrors "github.com/spec-kit/ticket-triage/pkg/util"
)

type fakeTicketRepo struct {
	upsertErr    error
	upserted     []domain.Ticket
	dispositions []dispositionCall
}

type dispositionCall struct {
	id         string
	status     domain.TicketStatus
	assignedTo *string
}

func (f *fakeTicketRepo) Upsert(ctx context.Context, ticket *domain.Ticket) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	ticket.ID = "ticket-1"
	f.upserted = append(f.upserted, *ticket)
	return nil
}

func (f *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return nil, apperrors.NewNotFound("ticket", nil)
}

func (f *fakeTicketRepo) GetByExternalID(ctx context.Context, externalID int64) (*domain.Ticket, error) {
	return nil, apperrors.NewNotFound("ticket", nil)
}

func (f *fakeTicketRepo) UpdateDisposition(ctx context.Context, id string, status domain.TicketStatus, assignedTo *string) error {
	f.dispositions = append(f.dispositions, dispositionCall{id: id, status: status, assignedTo: assignedTo})
	return nil
}

func (f *fakeTicketRepo) ListByStatus(ctx context.Context, status domain.TicketStatus, limit, offset int) ([]domain.Ticket, error) {
	return nil, nil
}

func (f *fakeTicketRepo) ListByTier(ctx context.Context, tier domain.Tier, limit, offset int) ([]domain.Ticket, error) {
	return nil, nil
}

func (f *fakeTicketRepo) ListRecent(ctx context.Context, limit int) ([]domain.Ticket, error) {
	return nil, nil
}

func (f *fakeTicketRepo) Stats(ctx context.Context) (*repository.TicketStats, error) {
	return &repository.TicketStats{}, nil
}

func (f *fakeTicketRepo) Analytics(ctx context.Context) (*repository.TicketAnalytics, error) {
	return &repository.TicketAnalytics{}, nil
}

type fakeHistoryRepo struct {
	entries []domain.TicketHistory
}

func (f *fakeHistoryRepo) Create(ctx context.Context, history *domain.TicketHistory) error {
	history.ID = "history-1"
	f.entries = append(f.entries, *history)
	return nil
}

func (f *fakeHistoryRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	return f.entries, nil
}

type noteCall struct {
	id      int64
	body    string
	private bool
}

type fakeHelpdesk struct {
	failAll     bool
	ticket      *domain.TicketPayload
	getErr      error
	notes       []noteCall
	resolved    []int64
	escalated   []int64
	statusCalls []helpdesk.Status
}

func (f *fakeHelpdesk) GetTicket(ctx context.Context, id int64) (*domain.TicketPayload, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.ticket, nil
}

func (f *fakeHelpdesk) AddNote(ctx context.Context, id int64, body string, private bool) error {
	if f.failAll {
		return errors.New("helpdesk down")
	}
	f.notes = append(f.notes, noteCall{id: id, body: body, private: private})
	return nil
}

func (f *fakeHelpdesk) UpdateStatus(ctx context.Context, id int64, status helpdesk.Status) error {
	if f.failAll {
		return errors.New("helpdesk down")
	}
	f.statusCalls = append(f.statusCalls, status)
	return nil
}

func (f *fakeHelpdesk) Resolve(ctx context.Context, id int64, note string) error {
	if f.failAll {
		return errors.New("helpdesk down")
	}
	f.resolved = append(f.resolved, id)
	return nil
}

func (f *fakeHelpdesk) Escalate(ctx context.Context, id int64, reason string) error {
	if f.failAll {
		return errors.New("helpdesk down")
	}
	f.escalated = append(f.escalated, id)
	return nil
}

func (f *fakeHelpdesk) TestConnection(ctx context.Context) bool { return true }

type stubRetriever struct {
	response string
}

func (s *stubRetriever) Answer(ctx context.Context, query string) string {
	return s.response
}

type harness struct {
	svc      *TriageService
	tickets  *fakeTicketRepo
	history  *fakeHistoryRepo
	helpdesk *fakeHelpdesk
	metrics  *observability.Metrics
	events   []events.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)

	h := &harness{
		tickets:  &fakeTicketRepo{},
		history:  &fakeHistoryRepo{},
		helpdesk: &fakeHelpdesk{},
		metrics:  observability.NewMetrics(),
	}

	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range []events.EventType{
		events.EventTicketProcessed,
		events.EventTicketAutoResolved,
		events.EventTicketEscalated,
	} {
		dispatcher.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
			h.events = append(h.events, event)
			return nil
		})
	}

	h.svc = NewTriageService(cfg.Triage, TriageDependencies{
		Classifier:  triage.NewClassifier(cfg.Triage),
		Retriever:   &stubRetriever{response: "Here's what I found:\n\nreset it in settings"},
		TicketRepo:  h.tickets,
		HistoryRepo: h.history,
		Helpdesk:    h.helpdesk,
		Dispatcher:  dispatcher,
		Metrics:     h.metrics,
		Logger:      zap.NewNop(),
	})
	return h
}

func (h *harness) eventTypes() []events.EventType {
	types := make([]events.EventType, 0, len(h.events))
	for _, event := range h.events {
		types = append(types, event.Type)
	}
	return types
}

func TestProcessTicketAutoResolve(t *testing.T) {
	h := newHarness(t)

	result := h.svc.ProcessTicket(context.Background(), domain.TicketPayload{
		ExternalID:  101,
		Subject:     "forgot password",
		Description: "can't login",
	})

	require.True(t, result.Success)
	assert.Equal(t, "ticket-1", result.TicketID)
	assert.Equal(t, domain.TierOne, result.Tier)
	assert.True(t, result.AutoResolved)
	assert.False(t, result.Escalated)

	require.Len(t, h.tickets.upserted, 1)
	saved := h.tickets.upserted[0]
	assert.Equal(t, int64(101), saved.ExternalID)
	assert.Equal(t, domain.TicketStatusOpen, saved.Status)
	assert.True(t, saved.AutoResolved)
	assert.Nil(t, saved.EscalationReason)
	assert.Equal(t, 1, saved.Priority)

	require.Len(t, h.helpdesk.notes, 1)
	assert.False(t, h.helpdesk.notes[0].private)
	assert.Contains(t, h.helpdesk.notes[0].body, "AUTOMATED RESPONSE")
	assert.Equal(t, []int64{101}, h.helpdesk.resolved)
	assert.Empty(t, h.helpdesk.escalated)

	require.Len(t, h.tickets.dispositions, 1)
	assert.Equal(t, domain.TicketStatusResolved, h.tickets.dispositions[0].status)
	assert.Nil(t, h.tickets.dispositions[0].assignedTo)

	require.Len(t, h.history.entries, 1)
	assert.Equal(t, "processed", h.history.entries[0].Action)
	assert.Contains(t, h.history.entries[0].Details, "tier_1")

	assert.Equal(t, []events.EventType{events.EventTicketProcessed, events.EventTicketAutoResolved}, h.eventTypes())
	assert.Equal(t, int64(1), h.metrics.TriageCounts()["auto_resolved"])
}

func TestProcessTicketEscalates(t *testing.T) {
	h := newHarness(t)

	result := h.svc.ProcessTicket(context.Background(), domain.TicketPayload{
		ExternalID:  102,
		Subject:     "system crash critical",
		Description: "urgent production down",
	})

	require.True(t, result.Success)
	assert.Equal(t, domain.TierComplex, result.Tier)
	assert.False(t, result.AutoResolved)
	assert.True(t, result.Escalated)

	require.Len(t, h.tickets.upserted, 1)
	require.NotNil(t, h.tickets.upserted[0].EscalationReason)
	assert.Equal(t, "Complex issue", *h.tickets.upserted[0].EscalationReason)

	require.Len(t, h.helpdesk.notes, 1)
	assert.True(t, h.helpdesk.notes[0].private)
	assert.Contains(t, h.helpdesk.notes[0].body, "ESCALATED")
	assert.Equal(t, []int64{102}, h.helpdesk.escalated)
	assert.Empty(t, h.helpdesk.resolved)

	require.Len(t, h.tickets.dispositions, 1)
	assert.Equal(t, domain.TicketStatusEscalated, h.tickets.dispositions[0].status)
	require.NotNil(t, h.tickets.dispositions[0].assignedTo)
	assert.Equal(t, "human_agent", *h.tickets.dispositions[0].assignedTo)

	assert.Equal(t, []events.EventType{events.EventTicketProcessed, events.EventTicketEscalated}, h.eventTypes())
	assert.Equal(t, int64(1), h.metrics.TriageCounts()["escalated"])
}

func TestProcessTicketAssistsTierTwo(t *testing.T) {
	h := newHarness(t)

	result := h.svc.ProcessTicket(context.Background(), domain.TicketPayload{
		ExternalID:  103,
		Subject:     "billing payment",
		Description: "wrong invoice",
		Priority:    2,
	})

	require.True(t, result.Success)
	assert.Equal(t, domain.TierTwo, result.Tier)
	assert.False(t, result.AutoResolved)
	assert.False(t, result.Escalated)

	require.Len(t, h.helpdesk.notes, 1)
	assert.False(t, h.helpdesk.notes[0].private)
	assert.Equal(t, []helpdesk.Status{helpdesk.StatusPending}, h.helpdesk.statusCalls)
	assert.Empty(t, h.helpdesk.resolved)
	assert.Empty(t, h.helpdesk.escalated)

	require.Len(t, h.tickets.dispositions, 1)
	assert.Equal(t, domain.TicketStatusPending, h.tickets.dispositions[0].status)
	assert.Equal(t, 2, h.tickets.upserted[0].Priority)

	assert.Equal(t, []events.EventType{events.EventTicketProcessed}, h.eventTypes())
	assert.Equal(t, int64(1), h.metrics.TriageCounts()["assisted"])
}

func TestProcessTicketRejectsInvalidPayload(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name    string
		payload domain.TicketPayload
	}{
		{name: "missing id", payload: domain.TicketPayload{Subject: "help"}},
		{name: "blank content", payload: domain.TicketPayload{ExternalID: 5, Subject: "  ", Description: "\t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := h.svc.ProcessTicket(context.Background(), tt.payload)
			assert.False(t, result.Success)
			assert.NotEmpty(t, result.Error)
		})
	}

	assert.Empty(t, h.tickets.upserted)
	assert.Empty(t, h.helpdesk.notes)
	assert.Equal(t, int64(2), h.metrics.TriageCounts()["failed"])
}

func TestProcessTicketPersistenceFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.tickets.upsertErr = errors.New("connection refused")

	result := h.svc.ProcessTicket(context.Background(), domain.TicketPayload{
		ExternalID: 104,
		Subject:    "forgot password",
	})

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Empty(t, h.helpdesk.notes)
	assert.Empty(t, h.helpdesk.resolved)
	assert.Empty(t, h.history.entries)
	assert.Empty(t, h.events)
	assert.Equal(t, int64(1), h.metrics.TriageCounts()["failed"])
}

func TestProcessTicketAbsorbsHelpdeskFailures(t *testing.T) {
	h := newHarness(t)
	h.helpdesk.failAll = true

	result := h.svc.ProcessTicket(context.Background(), domain.TicketPayload{
		ExternalID:  105,
		Subject:     "forgot password",
		Description: "can't login",
	})

	require.True(t, result.Success)
	assert.True(t, result.AutoResolved)

	// The local record is still marked resolved even though every
	// helpdesk call failed.
	require.Len(t, h.tickets.dispositions, 1)
	assert.Equal(t, domain.TicketStatusResolved, h.tickets.dispositions[0].status)
	require.Len(t, h.history.entries, 1)
}

func TestReprocessFetchesFromHelpdesk(t *testing.T) {
	h := newHarness(t)
	h.helpdesk.ticket = &domain.TicketPayload{
		ExternalID:  106,
		Subject:     "billing question",
		Description: "invoice amount",
		Priority:    1,
	}

	result := h.svc.Reprocess(context.Background(), 106)

	require.True(t, result.Success)
	assert.Equal(t, int64(106), result.ExternalID)
	assert.Equal(t, domain.TierTwo, result.Tier)
	require.Len(t, h.tickets.upserted, 1)
}

func TestReprocessUnknownTicket(t *testing.T) {
	h := newHarness(t)
	h.helpdesk.getErr = apperrors.NewNotFound("helpdesk ticket", nil)

	result := h.svc.Reprocess(context.Background(), 999)

	assert.False(t, result.Success)
	assert.Equal(t, int64(999), result.ExternalID)
	assert.Empty(t, h.tickets.upserted)
}

func TestReprocessTwiceAccumulatesHistory(t *testing.T) {
	h := newHarness(t)
	h.helpdesk.ticket = &domain.TicketPayload{
		ExternalID: 107,
		Subject:    "forgot password",
	}

	first := h.svc.Reprocess(context.Background(), 107)
	second := h.svc.Reprocess(context.Background(), 107)

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Len(t, h.tickets.upserted, 2)
	assert.Len(t, h.history.entries, 2)
}
