package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPurchase(t *testing.T) {
	before := testutil.ToFloat64(purchaseTotal.WithLabelValues("conflict"))
	RecordPurchase("Conflict", time.Now())
	assert.Equal(t, before+1, testutil.ToFloat64(purchaseTotal.WithLabelValues("conflict")))
}

func TestRecordRedeemDefaultsTier(t *testing.T) {
	before := testutil.ToFloat64(redeemTotal.WithLabelValues("no_win", "none"))
	RecordRedeem("no_win", "", time.Now())
	assert.Equal(t, before+1, testutil.ToFloat64(redeemTotal.WithLabelValues("no_win", "none")))
}

func TestRecordOutboxNormalizesResult(t *testing.T) {
	before := testutil.ToFloat64(outboxPublished.WithLabelValues("lotto_drawn", "fail"))
	RecordOutbox("lotto_drawn", "timeout")
	assert.Equal(t, before+1, testutil.ToFloat64(outboxPublished.WithLabelValues("lotto_drawn", "fail")))
}

func TestHandlerExposesLottoMetrics(t *testing.T) {
	RecordGenerate(ResultSuccess, "sample", 5, time.Now())
	RecordDraw(ResultSuccess, "issued", time.Now())

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "lotto_generate_total"))
	assert.True(t, strings.Contains(body, "lotto_tickets_generated_total"))
	assert.True(t, strings.Contains(body, `lotto_draw_total{result="success",source="issued"}`))
}
