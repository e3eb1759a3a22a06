package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tesfa/internal/apperr"
)

func TestChapaCreateTransaction(t *testing.T) {
	var captured chapaInitPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]any{
			"status":  "success",
			"message": "Hosted Link",
			"data":    map[string]string{"checkout_url": "https://checkout.chapa.co/pay/abc"},
		})
	}))
	defer srv.Close()

	svc := NewChapaService(srv.URL, "sk-test", "https://donate.example")

	url, err := svc.CreateTransaction(CreateTransactionRequest{
		Amount:    decimal.NewFromInt(100),
		Email:     "sara@example.com",
		FirstName: "Sara",
		LastName:  "Tesfaye",
		TxRef:     "DON-1-abcd1234",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.chapa.co/pay/abc", url)

	assert.Equal(t, "100.00", captured.Amount)
	assert.Equal(t, "ETB", captured.Currency)
	assert.Equal(t, "DON-1-abcd1234", captured.TxRef)
	assert.Equal(t, "https://donate.example/payment/verify", captured.CallbackURL)
	assert.Equal(t, "https://donate.example/dashboard", captured.ReturnURL)
}

func TestChapaCreateTransactionRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status":"failed","message":"Invalid API Key"}`))
	}))
	defer srv.Close()

	svc := NewChapaService(srv.URL, "sk-bad", "https://donate.example")

	_, err := svc.CreateTransaction(CreateTransactionRequest{
		Amount: decimal.NewFromInt(10), Email: "a@b.co",
		FirstName: "A", LastName: "B", TxRef: "DON-1-ffffffff",
	})

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "gateway_error", appErr.Code)
	assert.Contains(t, appErr.Detail, "Invalid API Key")
}

func TestChapaVerifyTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/transaction/verify/DON-1-abcd1234", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   map[string]string{"status": "success", "reference": "CH-42"},
		})
	}))
	defer srv.Close()

	svc := NewChapaService(srv.URL, "sk-test", "https://donate.example")

	res, err := svc.VerifyTransaction("DON-1-abcd1234")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "CH-42", res.Reference)
	assert.NotEmpty(t, res.Raw)
}

func TestChapaVerifyTransactionFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data":   map[string]string{"status": "failed", "reference": "CH-43"},
		})
	}))
	defer srv.Close()

	svc := NewChapaService(srv.URL, "sk-test", "https://donate.example")

	res, err := svc.VerifyTransaction("DON-1-abcd1234")
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestChapaTruncatedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Advertise more bytes than are sent so the client's body read
		// fails mid-stream.
		w.Header().Set("Content-Length", "512")
		w.Write([]byte(`{"status":"suc`))
	}))
	defer srv.Close()

	svc := NewChapaService(srv.URL, "sk-test", "https://donate.example")

	_, err := svc.VerifyTransaction("DON-1-abcd1234")

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "gateway_error", appErr.Code)
	assert.Equal(t, "payment gateway unreachable", appErr.Message)
}

func TestChapaUnreachable(t *testing.T) {
	svc := NewChapaService("http://127.0.0.1:1", "sk-test", "https://donate.example")

	_, err := svc.VerifyTransaction("DON-1-abcd1234")

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "gateway_error", appErr.Code)
}
