package leads

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/terra-clan/academy-engine/internal/models"
	"github.com/terra-clan/academy-engine/internal/storage"
)

type webhook struct {
	mu       sync.Mutex
	status   int
	received []Event
	sigs     []string
	bodies   [][]byte
}

func (w *webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	w.mu.Lock()
	defer w.mu.Unlock()
	var ev Event
	json.Unmarshal(body, &ev)
	w.received = append(w.received, ev)
	w.sigs = append(w.sigs, r.Header.Get(SignatureHeader))
	w.bodies = append(w.bodies, body)
	rw.WriteHeader(w.status)
}

func (w *webhook) setStatus(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = code
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     models.LeadRequest
		wantErr bool
	}{
		{"contact", models.LeadRequest{Form: "Contact", Email: "ana@example.com"}, false},
		{"missing form", models.LeadRequest{Email: "ana@example.com"}, true},
		{"unknown form", models.LeadRequest{Form: "survey", Email: "ana@example.com"}, true},
		{"bad email", models.LeadRequest{Form: "newsletter", Email: "ana"}, true},
		{"course interest without course", models.LeadRequest{Form: "course-interest", Email: "ana@example.com"}, true},
		{"course interest", models.LeadRequest{Form: "course-interest", Email: "ana@example.com", CourseSlug: "backend-go"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := Validate(&req)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidLead)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSubmitForwardsSignedLead(t *testing.T) {
	hook := &webhook{status: http.StatusOK}
	srv := httptest.NewServer(hook)
	defer srv.Close()

	repo := storage.NewMemoryRepository()
	svc := NewService(repo, NewWebhookForwarder(srv.URL, "s3cret", time.Second), 3)

	lead, err := svc.Submit(context.Background(), models.LeadRequest{
		Form:  "contact",
		Email: "Ana@Example.com",
		Name:  " Ana ",
	})
	require.NoError(t, err)
	require.Equal(t, models.LeadForwarded, lead.Status)
	require.Equal(t, "ana@example.com", lead.Email)
	require.Equal(t, "Ana", lead.Name)

	stored := repo.GetLead(lead.ID)
	require.Equal(t, models.LeadForwarded, stored.Status)
	require.NotNil(t, stored.ForwardedAt)

	hook.mu.Lock()
	defer hook.mu.Unlock()
	require.Len(t, hook.received, 1)
	require.Equal(t, "lead.created", hook.received[0].Type)
	require.Equal(t, lead.ID, hook.received[0].Lead.ID)
	require.True(t, Verify("s3cret", hook.bodies[0], hook.sigs[0]))
	require.False(t, Verify("other", hook.bodies[0], hook.sigs[0]))
}

func TestSubmitWithoutWebhookStaysPending(t *testing.T) {
	repo := storage.NewMemoryRepository()
	svc := NewService(repo, NewWebhookForwarder("", "", 0), 3)

	lead, err := svc.Submit(context.Background(), models.LeadRequest{Form: "newsletter", Email: "ana@example.com"})
	require.NoError(t, err)
	require.Equal(t, models.LeadPending, lead.Status)
	require.Zero(t, repo.GetLead(lead.ID).Attempts)

	_, err = NewDispatcher(svc, time.Minute, 10).Dispatch(context.Background())
	require.ErrorIs(t, err, ErrWebhookDisabled)
}

func TestDispatcherRetriesUntilFailed(t *testing.T) {
	hook := &webhook{status: http.StatusBadGateway}
	srv := httptest.NewServer(hook)
	defer srv.Close()

	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	svc := NewService(repo, NewWebhookForwarder(srv.URL, "", time.Second), 3)
	dispatcher := NewDispatcher(svc, time.Minute, 10)

	lead, err := svc.Submit(ctx, models.LeadRequest{Form: "contact", Email: "ana@example.com"})
	require.NoError(t, err)
	require.Equal(t, models.LeadPending, lead.Status)
	require.Equal(t, 1, repo.GetLead(lead.ID).Attempts)
	require.Contains(t, repo.GetLead(lead.ID).LastError, "502")

	res, err := dispatcher.Dispatch(ctx)
	require.NoError(t, err)
	require.Equal(t, DispatchResult{Attempted: 1, Failed: 1}, res)

	res, err = dispatcher.Dispatch(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Failed)
	require.Equal(t, models.LeadFailed, repo.GetLead(lead.ID).Status)

	// Failed leads are not retried
	res, err = dispatcher.Dispatch(ctx)
	require.NoError(t, err)
	require.Zero(t, res.Attempted)
}

func TestDispatcherForwardsAfterRecovery(t *testing.T) {
	hook := &webhook{status: http.StatusServiceUnavailable}
	srv := httptest.NewServer(hook)
	defer srv.Close()

	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	svc := NewService(repo, NewWebhookForwarder(srv.URL, "", time.Second), 5)

	lead, err := svc.Submit(ctx, models.LeadRequest{Form: "contact", Email: "ana@example.com"})
	require.NoError(t, err)

	hook.setStatus(http.StatusAccepted)
	res, err := NewDispatcher(svc, time.Minute, 10).Dispatch(ctx)
	require.NoError(t, err)
	require.Equal(t, DispatchResult{Attempted: 1, Forwarded: 1}, res)

	stored := repo.GetLead(lead.ID)
	require.Equal(t, models.LeadForwarded, stored.Status)
	require.Equal(t, 2, stored.Attempts)
	require.Empty(t, stored.LastError)
}

func TestDispatchSkipsLeadBeingForwarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(started)
			<-release
		}
		rw.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	svc := NewService(repo, NewWebhookForwarder(srv.URL, "", 5*time.Second), 3)

	submitted := make(chan *models.Lead, 1)
	go func() {
		lead, err := svc.Submit(ctx, models.LeadRequest{Form: "contact", Email: "ana@example.com"})
		if err != nil {
			lead = nil
		}
		submitted <- lead
	}()

	<-started
	res, err := NewDispatcher(svc, time.Minute, 10).Dispatch(ctx)
	require.NoError(t, err)
	require.Zero(t, res.Attempted)

	close(release)
	lead := <-submitted
	require.NotNil(t, lead)
	require.Equal(t, models.LeadForwarded, lead.Status)

	res, err = NewDispatcher(svc, time.Minute, 10).Dispatch(ctx)
	require.NoError(t, err)
	require.Zero(t, res.Attempted)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls)
}
