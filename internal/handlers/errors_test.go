package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artisanmarket/promo-engine/internal/apperr"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   apperr.Code
	}{
		{"validation", apperr.NewValidation("durationDays", "must be at least 1"), http.StatusBadRequest, apperr.CodeValidation},
		{"not found", apperr.NewNotFound("product", "p-1"), http.StatusNotFound, apperr.CodeNotFound},
		{"insufficient funds", &apperr.InsufficientFundsError{SellerID: "s", Balance: decimal.NewFromInt(10), Required: decimal.NewFromInt(20)},
			http.StatusPaymentRequired, apperr.CodeInsufficientFunds},
		{"stale", &apperr.StaleStateError{Resource: "promotional feature", ID: "f", Current: "active", Expected: []string{"pending_approval"}},
			http.StatusConflict, apperr.CodeStaleState},
		{"forbidden", &apperr.ForbiddenError{Reason: "nope"}, http.StatusForbidden, apperr.CodeForbidden},
		{"wrapped stale", errors.Wrap(&apperr.StaleStateError{Current: "expired"}, "approve"), http.StatusConflict, apperr.CodeStaleState},
		{"persistence", apperr.Persistence("get product", errors.New("connection reset")), http.StatusInternalServerError, apperr.CodePersistence},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, apperr.CodePersistence},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := classify(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, body.Code)
		})
	}
}

func TestRespondErrorBody(t *testing.T) {
	gin.SetMode(gin.TestMode)

	send := func(err error) map[string]map[string]interface{} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		respondError(c, err)
		var body map[string]map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body
	}

	funds := send(&apperr.InsufficientFundsError{SellerID: "s", Balance: decimal.RequireFromString("10"), Required: decimal.RequireFromString("25.5")})
	assert.Equal(t, "insufficient_funds", funds["error"]["code"])
	assert.Equal(t, map[string]interface{}{"balance": "10.00", "required": "25.50"}, funds["error"]["details"])

	internal := send(errors.New("dial tcp 10.0.0.1:3306: connection refused"))
	assert.Equal(t, "Internal server error", internal["error"]["message"])
	assert.NotContains(t, internal["error"], "details")

	invalid := send(apperr.NewValidation("reason", "is required"))
	details, ok := invalid["error"]["details"].([]interface{})
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Equal(t, "reason", details[0].(map[string]interface{})["field"])
}
