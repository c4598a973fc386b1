package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New(func() int { return 3 })

	m.ObservePoll("fetched", 120*time.Millisecond)
	m.ObservePoll("fetched", 80*time.Millisecond)
	m.ObservePoll("failed", time.Second)
	m.Notification("start")
	m.Refresh(true)
	m.Refresh(false)
	m.Refresh(false)
	m.Activity()
	m.Nudge()
	m.SetFailures(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.polls.WithLabelValues("fetched")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("start")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.refreshes.WithLabelValues("coalesced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activityEvents))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.failures))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.subscribers))
}

func TestSetPhaseIsExclusive(t *testing.T) {
	m := New(nil)
	m.SetPhase("active")
	m.SetPhase("paused")

	assert.Equal(t, 0.0, testutil.ToFloat64(m.phase.WithLabelValues("active")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.phase.WithLabelValues("paused")))
}

func TestHandler(t *testing.T) {
	m := New(nil)
	m.ObservePoll("fetched", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `arcade_polls_total{outcome="fetched"} 1`)
}
