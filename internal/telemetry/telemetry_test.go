package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if ingestArticlesTotal == nil || ingestArticleBytesTotal == nil ||
		ingestNotificationsTotal == nil || httpRequestsTotal == nil ||
		httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveIngestCountsBytesOnlyWhenStaged(t *testing.T) {
	Init()

	ObserveIngest("web", OutcomeStaged, 128)
	if val := testutil.ToFloat64(ingestArticleBytesTotal.WithLabelValues("web")); val != 128 {
		t.Errorf("expected 128 bytes recorded, got %f", val)
	}

	ObserveIngest("web", OutcomeRejected, 64)
	if val := testutil.ToFloat64(ingestArticleBytesTotal.WithLabelValues("web")); val != 128 {
		t.Errorf("expected rejected submission to not add bytes, got %f", val)
	}
}

func TestObserveIngestDefaultsUnknownSourceType(t *testing.T) {
	Init()

	before := testutil.ToFloat64(ingestArticlesTotal.WithLabelValues("unknown", OutcomeRejected))
	ObserveIngest("", OutcomeRejected, 0)
	after := testutil.ToFloat64(ingestArticlesTotal.WithLabelValues("unknown", OutcomeRejected))
	if after != before+1 {
		t.Errorf("expected unknown source_type counter to increment, got %f -> %f", before, after)
	}
}

func TestObserveHTTPRequest(t *testing.T) {
	Init()

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "201"))
	ObserveHTTPRequest("POST", "/", 201, 10*time.Millisecond)
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "201"))
	if after != before+1 {
		t.Errorf("expected request counter to increment, got %f -> %f", before, after)
	}
}
