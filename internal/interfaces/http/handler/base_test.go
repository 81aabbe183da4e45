package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/ledger"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/domain/shared"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/interfaces/http/dto"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/internal/interfaces/http/middleware"
	"github.com/offscriptLunaTechs/oxab-business-flow-sub000/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

func errorEngine(err error) *gin.Engine {
	h := &BaseHandler{}
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.GET("/err", func(c *gin.Context) { h.HandleError(c, err) })
	return engine
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"not found", ledger.ErrInvoiceNotFound, http.StatusNotFound, "INVOICE_NOT_FOUND", false},
		{"validation normalized", shared.NewDomainError(shared.CodeValidation, "Amount is required"), http.StatusBadRequest, dto.ErrCodeValidation, false},
		{"exceeds outstanding", shared.NewDomainError(ledger.CodeExceedsOutstanding, "too much"), http.StatusBadRequest, "EXCEEDS_OUTSTANDING", false},
		{"stored precision exceeded", ledger.ErrAmountOutOfRange, http.StatusBadRequest, "INVALID_AMOUNT", false},
		{"number conflict is retryable", shared.NewDomainError(ledger.CodeInvoiceNumberConflict, "taken"), http.StatusConflict, "INVOICE_NUMBER_CONFLICT", true},
		{"lock timeout is retryable", shared.ErrLockTimeout, http.StatusConflict, "LOCK_TIMEOUT", true},
		{"idempotency reuse", shared.NewDomainError(ledger.CodeIdempotencyKeyReused, "reused"), http.StatusConflict, "IDEMPOTENCY_KEY_REUSED", false},
		{"business rule", shared.NewDomainError(ledger.CodeTotalBelowAllocated, "below"), http.StatusUnprocessableEntity, "TOTAL_BELOW_ALLOCATED", false},
		{"wrapped store timeout", fmt.Errorf("list invoices: %w", shared.ErrStoreTimeout), http.StatusServiceUnavailable, "STORE_TIMEOUT", true},
		{"bare deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, "STORE_TIMEOUT", true},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testutil.PerformRequest(t, errorEngine(tt.err), http.MethodGet, "/err", nil,
				map[string]string{middleware.HeaderRequestID: "req-err"})

			resp := testutil.AssertErrorResponse(t, w, tt.status, tt.code)
			assert.Equal(t, "req-err", resp.Error.RequestID)
			assert.Equal(t, tt.retryable, resp.Error.Retryable)
		})
	}
}

func TestHandleError_HidesInternalMessage(t *testing.T) {
	w := testutil.PerformRequest(t, errorEngine(errors.New("pq: password authentication failed")), http.MethodGet, "/err", nil, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestBindJSON(t *testing.T) {
	h := &BaseHandler{}
	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.POST("/payments", func(c *gin.Context) {
		var req RecordPaymentRequest
		if !h.bindJSON(c, &req) {
			return
		}
		c.Status(http.StatusNoContent)
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w
	}

	t.Run("malformed JSON", func(t *testing.T) {
		testutil.AssertErrorResponse(t, post(`{"amount":`), http.StatusBadRequest, dto.ErrCodeInvalidJSON)
	})

	t.Run("numeric amount is not a decimal string", func(t *testing.T) {
		testutil.AssertErrorResponse(t, post(`{"customer_id":"3f1c2a34-5b6d-4e7f-8a9b-0c1d2e3f4a5b","amount":10,"payment_date":"2024-05-01","payment_method":"cash"}`),
			http.StatusBadRequest, dto.ErrCodeInvalidJSON)
	})

	t.Run("field validation", func(t *testing.T) {
		resp := testutil.AssertErrorResponse(t, post(`{"customer_id":"nope","amount":"1.0005","payment_date":"2024-13-01","payment_method":"cash"}`),
			http.StatusBadRequest, dto.ErrCodeValidation)

		fields := map[string]bool{}
		for _, d := range resp.Error.Details {
			fields[d.Field] = true
		}
		assert.True(t, fields["customer_id"])
		assert.True(t, fields["amount"])
		assert.True(t, fields["payment_date"])
	})

	t.Run("valid body", func(t *testing.T) {
		w := post(`{"customer_id":"3f1c2a34-5b6d-4e7f-8a9b-0c1d2e3f4a5b","amount":"10.500","payment_date":"2024-05-01","payment_method":"bank_transfer"}`)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestPathID(t *testing.T) {
	h := &BaseHandler{}
	engine := gin.New()
	engine.GET("/invoices/:id", func(c *gin.Context) {
		if _, ok := h.pathID(c); ok {
			c.Status(http.StatusOK)
		}
	})

	w := testutil.PerformRequest(t, engine, http.MethodGet, "/invoices/not-a-uuid", nil, nil)
	resp := testutil.AssertErrorResponse(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "id", resp.Error.Details[0].Field)

	w = testutil.PerformRequest(t, engine, http.MethodGet, "/invoices/3f1c2a34-5b6d-4e7f-8a9b-0c1d2e3f4a5b", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestParseHelpers(t *testing.T) {
	assert.True(t, parseMoney("").IsZero())
	assert.Equal(t, "12.5", parseMoney(" 12.500 ").String())
	assert.Nil(t, parseOptionalMoney(""))
	require.NotNil(t, parseOptionalMoney("0"))

	assert.Nil(t, parseOptionalDate(""))
	d := parseOptionalDate("2024-02-29")
	require.NotNil(t, d)
	assert.Equal(t, testutil.Date(2024, 2, 29), *d)

	assert.Nil(t, parseOptionalUUID(""))
	assert.Nil(t, parseOptionalUUID("garbage"))
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	newEngine := func(p Pinger) *gin.Engine {
		engine := gin.New()
		engine.GET("/health", NewHealthHandler(p, "1.2.3", 0).Health)
		return engine
	}

	t.Run("store up", func(t *testing.T) {
		w := testutil.PerformRequest(t, newEngine(stubPinger{}), http.MethodGet, "/health", nil, nil)
		body := testutil.DecodeData[HealthResponse](t, w)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, "up", body.Store)
		assert.Equal(t, "1.2.3", body.Version)
	})

	t.Run("store down", func(t *testing.T) {
		w := testutil.PerformRequest(t, newEngine(stubPinger{err: errors.New("connection refused")}), http.MethodGet, "/health", nil, nil)
		resp := testutil.AssertErrorResponse(t, w, http.StatusServiceUnavailable, dto.ErrCodeServiceUnavailable)
		assert.Contains(t, string(resp.Data), `"store":"down"`)
	})
}
