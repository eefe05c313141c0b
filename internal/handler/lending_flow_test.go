package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/library-lending/internal/domain"
	"github.com/segyhp/library-lending/internal/handler"
	"github.com/segyhp/library-lending/internal/metrics"
	"github.com/segyhp/library-lending/internal/repository"
	"github.com/segyhp/library-lending/internal/service"
)

type outbox struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (o *outbox) Notify(ctx context.Context, n domain.Notification) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, n)
	return nil
}

func (o *outbox) recipients() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	users := make([]string, 0, len(o.sent))
	for _, n := range o.sent {
		users = append(users, n.UserID)
	}
	return users
}

func newLendingApp(t *testing.T) (http.Handler, *outbox) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	notifier := &outbox{}
	svc := service.NewLendingService(repository.NewMemoryStore(), notifier, metrics.NewCollector(registry),
		service.DefaultPolicy(), service.WithLogger(logger))

	return handler.NewRouter(handler.RouterDeps{
		Lending: handler.NewLendingHandler(svc),
		Health: handler.NewHealthHandler(time.Second, map[string]handler.Check{
			"store": svc.Ping,
		}),
		Metrics: metrics.Handler(registry),
		Logger:  logger,
	}), notifier
}

func TestLendingFlow(t *testing.T) {
	app, notifier := newLendingApp(t)

	// 1. Catalog a title with a single copy
	rec, env := doRequest(t, app, http.MethodPost, "/api/v1/admin/titles",
		domain.CreateTitleRequest{Name: "The Left Hand of Darkness", TotalCopies: 1}, admin("librarian"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var title domain.Title
	require.NoError(t, json.Unmarshal(env.Data, &title))

	// 2. First student takes the only copy
	rec, env = doRequest(t, app, http.MethodPost, "/api/v1/loans",
		domain.BorrowRequest{TitleID: title.ID.String()}, student("student-1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var borrowed domain.BorrowResponse
	require.NoError(t, json.Unmarshal(env.Data, &borrowed))

	// 3. Second student finds no copy and joins the queue
	rec, env = doRequest(t, app, http.MethodPost, "/api/v1/loans",
		domain.BorrowRequest{TitleID: title.ID.String()}, student("student-2"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "NO_CAPACITY", env.Code)

	rec, _ = doRequest(t, app, http.MethodPost, "/api/v1/reservations",
		domain.ReserveRequest{TitleID: title.ID.String()}, student("student-2"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// 4. Open loans show the title
	rec, env = doRequest(t, app, http.MethodGet, "/api/v1/loans", nil, student("student-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	var open []domain.OpenLoanView
	require.NoError(t, json.Unmarshal(env.Data, &open))
	require.Len(t, open, 1)
	assert.Equal(t, borrowed.LoanID, open[0].LoanID)
	assert.Equal(t, title.Name, open[0].Title)

	// 5. Another student cannot return someone else's loan
	rec, env = doRequest(t, app, http.MethodPost, "/api/v1/loans/"+borrowed.LoanID.String()+"/return", nil, student("student-2"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "LOAN_NOT_FOUND", env.Code)

	// 6. The borrower returns on time and the queue head is told
	rec, env = doRequest(t, app, http.MethodPost, "/api/v1/loans/"+borrowed.LoanID.String()+"/return", nil, student("student-1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var returned domain.ReturnResponse
	require.NoError(t, json.Unmarshal(env.Data, &returned))
	assert.True(t, returned.FineAmount.IsZero())
	assert.Equal(t, []string{"student-2"}, notifier.recipients())

	// 7. Nothing to pay after an on-time return
	rec, env = doRequest(t, app, http.MethodPost, "/api/v1/fines/pay", nil, student("student-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	var settlement struct {
		NothingDue bool   `json:"nothing_due"`
		Message    string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &settlement))
	assert.True(t, settlement.NothingDue)
	assert.Equal(t, "No pending fines to pay", settlement.Message)

	// 8. The notified student borrows the freed copy
	rec, _ = doRequest(t, app, http.MethodPost, "/api/v1/loans",
		domain.BorrowRequest{TitleID: title.ID.String()}, student("student-2"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// 9. History and inventory reflect the flow
	rec, env = doRequest(t, app, http.MethodGet, "/api/v1/loans/history", nil, student("student-1"))
	require.Equal(t, http.StatusOK, rec.Code)
	var history []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, domain.LoanStatusReturned, history[0].Status)

	rec, env = doRequest(t, app, http.MethodGet, "/api/v1/admin/reports/inventory", nil, admin("librarian"))
	require.Equal(t, http.StatusOK, rec.Code)
	var report domain.InventoryReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 1, report.TotalCopies)
	assert.Zero(t, report.AvailableCopies)
	assert.Equal(t, 1, report.OpenLoans)
	assert.Zero(t, report.PendingReservations)
	require.Len(t, report.ByTitle, 1)
	assert.Equal(t, title.ID, report.ByTitle[0].TitleID)
	assert.Equal(t, 1, report.ByTitle[0].OpenLoans)

	// 10. The desk sees who holds the copy
	rec, env = doRequest(t, app, http.MethodGet, "/api/v1/admin/loans", nil, admin("librarian"))
	require.Equal(t, http.StatusOK, rec.Code)
	var borrowedLoans []domain.BorrowedLoanView
	require.NoError(t, json.Unmarshal(env.Data, &borrowedLoans))
	require.Len(t, borrowedLoans, 1)
	assert.Equal(t, "student-2", borrowedLoans[0].UserID)
	assert.Equal(t, title.Name, borrowedLoans[0].Title)
	assert.False(t, borrowedLoans[0].Overdue)

	// 11. Operations are exported as metrics
	metricsRec := httptest.NewRecorder()
	app.ServeHTTP(metricsRec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, metricsRec.Code)
	assert.Contains(t, metricsRec.Body.String(), `lending_operations_total{operation="borrow",outcome="NO_CAPACITY"} 1`)
	assert.Contains(t, metricsRec.Body.String(), `lending_notifications_total{kind="book_available",result="sent"} 1`)
}

func TestLendingFlow_ReadyWithMemoryStore(t *testing.T) {
	app, _ := newLendingApp(t)

	rec, env := doRequest(t, app, http.MethodGet, "/health/ready", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}
