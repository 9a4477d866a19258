package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCartMutationCounter(t *testing.T) {
	before := testutil.ToFloat64(cartMutations.WithLabelValues("add", ResultRejected))
	CartMutation("add", ResultRejected)
	CartMutation("add", ResultRejected)
	if got := testutil.ToFloat64(cartMutations.WithLabelValues("add", ResultRejected)); got != before+2 {
		t.Fatalf("counter want %v got %v", before+2, got)
	}
}

func TestSnapshotRepairIgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(snapshotRepairs.WithLabelValues("extra_mess"))
	SnapshotRepair("extra_mess", 0)
	SnapshotRepair("extra_mess", 2)
	if got := testutil.ToFloat64(snapshotRepairs.WithLabelValues("extra_mess")); got != before+2 {
		t.Fatalf("repair counter want %v got %v", before+2, got)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/api/v1/cart", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(Handler()))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	SetActiveCarts(3)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	if !strings.Contains(body, `http_requests_total{method="GET",path="/api/v1/cart",status="200"}`) {
		t.Fatalf("request counter missing from exposition")
	}
	if !strings.Contains(body, "cart_active_sessions 3") {
		t.Fatalf("active cart gauge missing from exposition")
	}
}
