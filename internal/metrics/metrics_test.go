package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
)

func TestRecordSourceQuery(t *testing.T) {
	okBefore := testutil.ToFloat64(SourceRequests.WithLabelValues("test_ok", "ok"))
	resultsBefore := testutil.ToFloat64(SourceResults.WithLabelValues("test_ok"))

	RecordSourceQuery("test_ok", 4, 20*time.Millisecond, nil)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(SourceRequests.WithLabelValues("test_ok", "ok")))
	assert.Equal(t, resultsBefore+4, testutil.ToFloat64(SourceResults.WithLabelValues("test_ok")))
}

func TestSourceOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "success", err: nil, want: "ok"},
		{name: "plain failure", err: errors.New("timeout"), want: "error"},
		{name: "breaker open", err: fmt.Errorf("google_books: %w", gobreaker.ErrOpenState), want: "breaker_open"},
		{name: "half open saturated", err: gobreaker.ErrTooManyRequests, want: "breaker_open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sourceOutcome(tt.err))
		})
	}
}

func TestRecordSearchCountsDuplicates(t *testing.T) {
	searches := testutil.ToFloat64(Searches)
	dups := testutil.ToFloat64(SearchDuplicates)

	RecordSearch(10, 7)
	RecordSearch(3, 3)

	assert.Equal(t, searches+2, testutil.ToFloat64(Searches))
	assert.Equal(t, dups+3, testutil.ToFloat64(SearchDuplicates))
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/search", "200"))
	RecordAPIRequest("GET", "/api/search", 200, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/search", "200")))
}

func TestRecordBreakerState(t *testing.T) {
	RecordBreakerState("test_breaker", gobreaker.StateOpen)
	assert.Equal(t, 2.0, testutil.ToFloat64(BreakerState.WithLabelValues("test_breaker")))

	RecordBreakerState("test_breaker", gobreaker.StateHalfOpen)
	assert.Equal(t, 1.0, testutil.ToFloat64(BreakerState.WithLabelValues("test_breaker")))

	RecordBreakerState("test_breaker", gobreaker.StateClosed)
	assert.Equal(t, 0.0, testutil.ToFloat64(BreakerState.WithLabelValues("test_breaker")))
}
