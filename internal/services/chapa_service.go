package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/example/tesfa/internal/apperr"
)

// Gateway abstracts the payment provider for the orchestrator.
type Gateway interface {
	CreateTransaction(req CreateTransactionRequest) (string, error)
	VerifyTransaction(txRef string) (*VerifyResult, error)
}

// Donations are collected in Ethiopian birr.
const donationCurrency = "ETB"

var chapaHTTPClient = &http.Client{Timeout: 15 * time.Second}

// ChapaService talks to the Chapa payment API. The secret key rides on
// every call as a bearer credential.
type ChapaService struct {
	baseURL     string
	secretKey   string
	frontendURL string
	client      *http.Client
}

// NewChapaService constructs a ChapaService.
func NewChapaService(baseURL, secretKey, frontendURL string) *ChapaService {
	return &ChapaService{
		baseURL:     strings.TrimRight(baseURL, "/"),
		secretKey:   secretKey,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		client:      chapaHTTPClient,
	}
}

// CreateTransactionRequest carries the fields Chapa needs to set up a
// hosted checkout.
type CreateTransactionRequest struct {
	Amount    decimal.Decimal
	Email     string
	FirstName string
	LastName  string
	TxRef     string
}

type chapaInitPayload struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	TxRef       string `json:"tx_ref"`
	CallbackURL string `json:"callback_url"`
	ReturnURL   string `json:"return_url"`
}

type chapaInitResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
}

// CreateTransaction registers the payment with Chapa and returns the
// checkout URL the donor's browser is redirected to. The amount crosses
// the wire as a fixed two-decimal string so no binary float artifacts
// reach the provider.
func (s *ChapaService) CreateTransaction(req CreateTransactionRequest) (string, error) {
	payload := chapaInitPayload{
		Amount:      req.Amount.StringFixed(2),
		Currency:    donationCurrency,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		TxRef:       req.TxRef,
		CallbackURL: s.frontendURL + "/payment/verify",
		ReturnURL:   s.frontendURL + "/dashboard",
	}

	body, err := s.do(http.MethodPost, "/v1/transaction/initialize", payload)
	if err != nil {
		return "", err
	}

	var resp chapaInitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", apperr.Gateway("malformed gateway response", string(body))
	}
	if resp.Status != "success" || resp.Data.CheckoutURL == "" {
		return "", apperr.Gateway("gateway rejected transaction", string(body))
	}

	return resp.Data.CheckoutURL, nil
}

// VerifyResult is the gateway's view of a transaction.
type VerifyResult struct {
	Success   bool            `json:"success"`
	Reference string          `json:"reference"`
	Raw       json.RawMessage `json:"raw"`
}

type chapaVerifyResponse struct {
	Status string `json:"status"`
	Data   struct {
		Status    string `json:"status"`
		Reference string `json:"reference"`
	} `json:"data"`
}

// VerifyTransaction queries Chapa for the settlement state of txRef.
func (s *ChapaService) VerifyTransaction(txRef string) (*VerifyResult, error) {
	body, err := s.do(http.MethodGet, "/v1/transaction/verify/"+txRef, nil)
	if err != nil {
		return nil, err
	}

	var resp chapaVerifyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperr.Gateway("malformed gateway response", string(body))
	}

	return &VerifyResult{
		Success:   resp.Status == "success" && resp.Data.Status == "success",
		Reference: resp.Data.Reference,
		Raw:       json.RawMessage(body),
	}, nil
}

func (s *ChapaService) do(method, path string, payload any) ([]byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("chapa request marshal: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("chapa request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.secretKey)

	resp, err := s.client.Do(req)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Error("chapa request failed")
		return nil, apperr.Gateway("payment gateway unreachable", err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Error("chapa response read failed")
		return nil, apperr.Gateway("payment gateway unreachable", err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logrus.WithFields(logrus.Fields{
			"path":   path,
			"status": resp.StatusCode,
			"body":   string(respBody),
		}).Error("chapa request rejected")
		return nil, apperr.Gateway(fmt.Sprintf("gateway returned status %d", resp.StatusCode), string(respBody))
	}

	return respBody, nil
}
