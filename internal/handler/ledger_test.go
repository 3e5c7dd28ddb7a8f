package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prestamos/ledger-engine/internal/config"
	"github.com/prestamos/ledger-engine/internal/domain"
	"github.com/prestamos/ledger-engine/internal/repository"
	"github.com/prestamos/ledger-engine/internal/service"
	"github.com/prestamos/ledger-engine/internal/validation"
)

const testLoanID = "loan-1"

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()

	cfg := &config.Config{
		Business: config.BusinessConfig{
			RebalanceStep:       "0.01",
			ConservationEpsilon: "0.01",
		},
	}

	store := repository.NewMemoryStore()
	rosterRepo := repository.NewRosterRepository(store)
	ledgerRepo := repository.NewLedgerRepository(store)

	loan := &domain.Loan{
		ID:        testLoanID,
		Client:    "Juan Perez",
		Total:     decimal.NewFromInt(200),
		Currency:  domain.CurrencyUSD,
		CreatedAt: time.Now(),
	}
	require.NoError(t, rosterRepo.Save(context.Background(), []*domain.Loan{loan}))

	svc := service.NewLedgerService(rosterRepo, ledgerRepo, validation.New(), cfg)
	ledgerHandler := NewLedgerHandler(svc)

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/loans", ledgerHandler.ListLoans).Methods("GET")
	api.HandleFunc("/loans", ledgerHandler.CreateLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}/installments", ledgerHandler.GetInstallments).Methods("GET")
	api.HandleFunc("/loans/{loanId}/installments", ledgerHandler.ResetLedger).Methods("DELETE")
	api.HandleFunc("/loans/{loanId}/installments/{index:[0-9]+}/split", ledgerHandler.Split).Methods("POST")
	api.HandleFunc("/loans/{loanId}/installments/{index:[0-9]+}/rebalance", ledgerHandler.Rebalance).Methods("POST")
	api.HandleFunc("/loans/{loanId}/installments/{installmentId}/pay", ledgerHandler.Pay).Methods("POST")
	api.HandleFunc("/loans/{loanId}/installments/{installmentId}", ledgerHandler.UpdateInstallment).Methods("PATCH")

	return router
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
}

func doRequest(t *testing.T, router *mux.Router, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func getLedger(t *testing.T, router *mux.Router) domain.LedgerResponse {
	t.Helper()

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/loans/"+testLoanID+"/installments", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var ledger domain.LedgerResponse
	require.NoError(t, json.Unmarshal(env.Data, &ledger))
	return ledger
}

func TestGetInstallments_BootstrapLedger(t *testing.T) {
	router := newTestRouter(t)

	ledger := getLedger(t, router)

	require.Len(t, ledger.Installments, 1)
	assert.Equal(t, domain.TitleDownPayment, ledger.Installments[0].Title)
	assert.Equal(t, "100", ledger.Installments[0].Percentage)
}

func TestGetInstallments_UnknownLoan(t *testing.T) {
	router := newTestRouter(t)

	rec, env := doRequest(t, router, http.MethodGet, "/api/v1/loans/nope/installments", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "LOAN_NOT_FOUND", env.Code)
}

func TestSplitEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/loans/"+testLoanID+"/installments/0/split", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var ledger domain.LedgerResponse
	require.NoError(t, json.Unmarshal(env.Data, &ledger))
	require.Len(t, ledger.Installments, 2)
	assert.Equal(t, "50", ledger.Installments[0].Percentage)
	assert.Equal(t, "50", ledger.Installments[1].Percentage)
}

func TestRebalanceEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/loans/"+testLoanID+"/installments/0/split", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := doRequest(t, router, http.MethodPost,
		"/api/v1/loans/"+testLoanID+"/installments/1/rebalance",
		domain.RebalanceRequest{Direction: 1})

	require.Equal(t, http.StatusOK, rec.Code)

	var ledger domain.LedgerResponse
	require.NoError(t, json.Unmarshal(env.Data, &ledger))
	assert.True(t, ledger.Installments[0].Amount.Equal(decimal.NewFromInt(98)))
	assert.True(t, ledger.Installments[1].Amount.Equal(decimal.NewFromInt(102)))
}

func TestPayEndpoint_OutOfSequence(t *testing.T) {
	router := newTestRouter(t)

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/loans/"+testLoanID+"/installments/0/split", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	second := getLedger(t, router).Installments[1]

	rec, env := doRequest(t, router, http.MethodPost,
		"/api/v1/loans/"+testLoanID+"/installments/"+second.ID.String()+"/pay",
		domain.PayRequest{Method: "Tarjeta"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "OUT_OF_SEQUENCE", env.Code)
	assert.Contains(t, env.Message, domain.TitleDownPayment)
}

func TestPayEndpoint_InOrder(t *testing.T) {
	router := newTestRouter(t)

	first := getLedger(t, router).Installments[0]

	rec, env := doRequest(t, router, http.MethodPost,
		"/api/v1/loans/"+testLoanID+"/installments/"+first.ID.String()+"/pay",
		domain.PayRequest{Method: "Efectivo"})

	require.Equal(t, http.StatusOK, rec.Code)

	var ledger domain.LedgerResponse
	require.NoError(t, json.Unmarshal(env.Data, &ledger))
	assert.Equal(t, domain.StatusPaid, ledger.Installments[0].Status)
	assert.Equal(t, "Efectivo", ledger.Installments[0].PaymentMethod)
}

func TestUpdateInstallmentEndpoint(t *testing.T) {
	router := newTestRouter(t)

	first := getLedger(t, router).Installments[0]
	title := "Primera cuota"
	due := "2025-06-01"

	rec, env := doRequest(t, router, http.MethodPatch,
		"/api/v1/loans/"+testLoanID+"/installments/"+first.ID.String(),
		domain.UpdateInstallmentRequest{Title: &title, DueDate: &due})

	require.Equal(t, http.StatusOK, rec.Code)

	var ledger domain.LedgerResponse
	require.NoError(t, json.Unmarshal(env.Data, &ledger))
	assert.Equal(t, "Primera cuota", ledger.Installments[0].Title)
	assert.Equal(t, "2025-06-01", ledger.Installments[0].DueDate.String())
}

func TestUpdateInstallmentEndpoint_BadDateKeepsTitle(t *testing.T) {
	router := newTestRouter(t)

	first := getLedger(t, router).Installments[0]
	title := "Cuota uno"
	due := "not-a-date"

	rec, _ := doRequest(t, router, http.MethodPatch,
		"/api/v1/loans/"+testLoanID+"/installments/"+first.ID.String(),
		domain.UpdateInstallmentRequest{Title: &title, DueDate: &due})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The rejected request leaves the ledger exactly as it was.
	after := getLedger(t, router)
	assert.Equal(t, domain.TitleDownPayment, after.Installments[0].Title)
	assert.Equal(t, first.DueDate.String(), after.Installments[0].DueDate.String())
}

func TestUpdateInstallmentEndpoint_EmptyBody(t *testing.T) {
	router := newTestRouter(t)

	first := getLedger(t, router).Installments[0]

	rec, _ := doRequest(t, router, http.MethodPatch,
		"/api/v1/loans/"+testLoanID+"/installments/"+first.ID.String(),
		domain.UpdateInstallmentRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateLoanEndpoint_InvalidCurrency(t *testing.T) {
	router := newTestRouter(t)

	rec, env := doRequest(t, router, http.MethodPost, "/api/v1/loans",
		domain.CreateLoanRequest{Client: "Carla Gomez", Total: decimal.NewFromInt(90), Currency: "EUR"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", env.Code)
}

func TestResetEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec, _ := doRequest(t, router, http.MethodPost, "/api/v1/loans/"+testLoanID+"/installments/0/split", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := doRequest(t, router, http.MethodDelete, "/api/v1/loans/"+testLoanID+"/installments", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var ledger domain.LedgerResponse
	require.NoError(t, json.Unmarshal(env.Data, &ledger))
	assert.Len(t, ledger.Installments, 1)
}
