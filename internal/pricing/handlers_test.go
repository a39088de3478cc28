package pricing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type quoteEnvelope struct {
	Data struct {
		PhotoCount int             `json:"photoCount"`
		Services   map[string]bool `json:"services"`
		Total      string          `json:"total"`
		Discount   string          `json:"discount"`
		Currency   string          `json:"currency"`
		Tier       *TierView       `json:"discountTier"`
		Lines      []struct {
			Service  string `json:"service"`
			Subtotal string `json:"subtotal"`
		} `json:"lines"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func postQuote(t *testing.T, body string) (*httptest.ResponseRecorder, quoteEnvelope) {
	t.Helper()
	h := &Handler{Currency: "USD"}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.CreateQuote(rr, req)
	var env quoteEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return rr, env
}

func TestCreateQuoteHandler(t *testing.T) {
	rr, env := postQuote(t, `{"photoCount":20,"services":{"twilightConversion":true,"decluttering":true}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "144.16", env.Data.Total)
	require.Equal(t, "25.44", env.Data.Discount)
	require.Equal(t, "USD", env.Data.Currency)
	require.NotNil(t, env.Data.Tier)
	require.Equal(t, "15% Volume Discount", env.Data.Tier.Label)
	require.Equal(t, 15.0, env.Data.Tier.Percent)
	require.True(t, env.Data.Services["standardEditing"])
	require.Len(t, env.Data.Lines, 3)
}

func TestCreateQuoteDefaultsToStandardEditing(t *testing.T) {
	rr, env := postQuote(t, `{"photoCount":5}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "7.50", env.Data.Total)
	require.Nil(t, env.Data.Tier)
}

func TestCreateQuoteZeroPhotos(t *testing.T) {
	rr, env := postQuote(t, `{"photoCount":0,"services":{"virtualStaging":true}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "0.00", env.Data.Total)
	require.NotNil(t, env.Data.Lines)
}

func TestCreateQuoteValidation(t *testing.T) {
	cases := map[string]string{
		"negative count":  `{"photoCount":-1}`,
		"missing count":   `{"services":{}}`,
		"unknown service": `{"photoCount":3,"services":{"aerialDrone":true}}`,
		"above maximum":   `{"photoCount":1000001}`,
		"overflowing":     `{"photoCount":5000000000000000,"services":{"virtualStaging":true}}`,
		"unknown field":   `{"photoCount":3,"discount":"99.00"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr, env := postQuote(t, body)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.NotNil(t, env.Error)
			require.Equal(t, "INVALID_INPUT", env.Error.Code)
		})
	}
}

func TestCreateQuoteAtMaximum(t *testing.T) {
	rr, env := postQuote(t, `{"photoCount":1000000,"services":{"virtualStaging":true,"twilightConversion":true,"decluttering":true}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "15708000.00", env.Data.Total)
	require.Equal(t, "2772000.00", env.Data.Discount)
}

func TestListServicesHandler(t *testing.T) {
	h := &Handler{Currency: "USD"}
	rr := httptest.NewRecorder()
	h.ListServices(rr, httptest.NewRequest(http.MethodGet, "/api/v1/services", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data []Service `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 4)
	require.Equal(t, StandardEditing, body.Data[0].ID)
	require.True(t, body.Data[0].Mandatory)
	require.Equal(t, Money(1000), body.Data[1].UnitPrice)
}
