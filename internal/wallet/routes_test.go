package wallet

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bx-rounds/internal/ledger"
)

func newApp() (*fiber.App, *ledger.Service) {
	l := ledger.New(ledger.WithStartingBalance(decimal.NewFromInt(100)))
	s := New(l)

	app := fiber.New()
	RegisterRoutes(app, s)
	RegisterAdminRoutes(app, s)

	return app, l
}

func TestBalanceProvisionsUser(t *testing.T) {
	app, _ := newApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/wallet/balance/4", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var body struct {
		Balance decimal.Decimal `json:"balance"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "100", body.Balance.String())

	resp, err = app.Test(httptest.NewRequest("GET", "/wallet/balance/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestCredit(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{name: "credited", body: `{"uid": 4, "amount": "12.5"}`, status: 200, want: "112.5"},
		{name: "numeric_amount", body: `{"uid": 4, "amount": 1}`, status: 200, want: "101"},
		{name: "negative", body: `{"uid": 4, "amount": "-1"}`, status: 400, want: "100"},
		{name: "sub_cent", body: `{"uid": 4, "amount": "0.001"}`, status: 400, want: "100"},
		{name: "missing_uid", body: `{"amount": "1"}`, status: 400, want: "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, l := newApp()

			req := httptest.NewRequest("POST", "/wallet/credit", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.want, l.Balance(4).String())
		})
	}
}
