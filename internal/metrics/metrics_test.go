package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOperation("borrow", "ok", 10*time.Millisecond)
	c.RecordOperation("borrow", "ok", 5*time.Millisecond)
	c.RecordOperation("borrow", "NO_CAPACITY", time.Millisecond)
	c.RecordNotification("book_available", nil)
	c.RecordNotification("book_available", errors.New("redis down"))
	c.RecordReminders("due_date", 4)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.operations.WithLabelValues("borrow", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.operations.WithLabelValues("borrow", "NO_CAPACITY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.notifications.WithLabelValues("book_available", "failed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.reminders.WithLabelValues("due_date")))
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordReminders("fine_reminder", 1)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lending_reminders_total")
}
