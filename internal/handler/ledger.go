package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/prestamos/ledger-engine/internal/domain"
	"github.com/prestamos/ledger-engine/internal/service"
	apperrors "github.com/prestamos/ledger-engine/pkg/errors"
	"github.com/prestamos/ledger-engine/pkg/response"
)

// LedgerHandler adapts HTTP requests from the presentation layer onto
// ledger engine operations.
type LedgerHandler struct {
	service *service.LedgerService
}

func NewLedgerHandler(service *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// ListLoans handles GET /api/v1/loans
func (h *LedgerHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.ListLoans(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	response.Success(w, loans)
}

// CreateLoan handles POST /api/v1/loans
func (h *LedgerHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), &request)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	response.Created(w, loan)
}

// GetInstallments handles GET /api/v1/loans/{loanId}/installments
func (h *LedgerHandler) GetInstallments(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	loan, seq, err := h.service.GetLedger(r.Context(), loanID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	response.Success(w, h.ledgerResponse(loan, seq))
}

// ResetLedger handles DELETE /api/v1/loans/{loanId}/installments
func (h *LedgerHandler) ResetLedger(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	seq, err := h.service.ResetLedger(r.Context(), loanID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	loan, _, err := h.service.GetLedger(r.Context(), loanID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	response.Success(w, h.ledgerResponse(loan, seq))
}

// Split handles POST /api/v1/loans/{loanId}/installments/{index}/split
func (h *LedgerHandler) Split(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	loanID := vars["loanId"]

	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		response.BadRequest(w, "index must be an integer", err)
		return
	}

	seq, err := h.service.Split(r.Context(), loanID, index)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.writeLedger(w, r, loanID, seq)
}

// Rebalance handles POST /api/v1/loans/{loanId}/installments/{index}/rebalance
func (h *LedgerHandler) Rebalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	loanID := vars["loanId"]

	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		response.BadRequest(w, "index must be an integer", err)
		return
	}

	var request domain.RebalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	seq, err := h.service.Rebalance(r.Context(), loanID, index, request.Direction)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.writeLedger(w, r, loanID, seq)
}

// Pay handles POST /api/v1/loans/{loanId}/installments/{installmentId}/pay
func (h *LedgerHandler) Pay(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	loanID := vars["loanId"]
	installmentID := vars["installmentId"]

	var request domain.PayRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	seq, err := h.service.MarkPaid(r.Context(), loanID, installmentID, request.Method)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.writeLedger(w, r, loanID, seq)
}

// UpdateInstallment handles PATCH /api/v1/loans/{loanId}/installments/{installmentId}
func (h *LedgerHandler) UpdateInstallment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	loanID := vars["loanId"]
	installmentID := vars["installmentId"]

	var request domain.UpdateInstallmentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if request.Title == nil && request.DueDate == nil {
		response.BadRequest(w, "title or due_date is required", nil)
		return
	}

	// Both edits land in one mutation, so a bad half leaves the ledger
	// untouched. The date is parsed up front for the same reason.
	var due *domain.Date
	if request.DueDate != nil {
		parsed, parseErr := domain.ParseDate(*request.DueDate)
		if parseErr != nil {
			response.BadRequest(w, "due_date must be an ISO-8601 date", parseErr)
			return
		}
		due = &parsed
	}

	seq, err := h.service.UpdateInstallment(r.Context(), loanID, installmentID, request.Title, due)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.writeLedger(w, r, loanID, seq)
}

func (h *LedgerHandler) writeLedger(w http.ResponseWriter, r *http.Request, loanID string, seq []domain.Installment) {
	loan, _, err := h.service.GetLedger(r.Context(), loanID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	response.Success(w, h.ledgerResponse(loan, seq))
}

func (h *LedgerHandler) ledgerResponse(loan *domain.Loan, seq []domain.Installment) domain.LedgerResponse {
	views := make([]domain.InstallmentView, len(seq))
	for i := range seq {
		views[i] = domain.InstallmentView{
			Installment: seq[i],
			Percentage:  h.service.PercentageOf(seq[i].Amount, loan.Total),
		}
	}

	return domain.LedgerResponse{
		LoanID:       loan.ID,
		Total:        loan.Total,
		Currency:     loan.Currency,
		Installments: views,
	}
}

// writeDomainError maps the engine's error taxonomy onto HTTP statuses. The
// surfaced message is always the single human-readable one the engine
// produced.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrLoanNotFound),
		errors.Is(err, apperrors.ErrInstallmentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrValidationFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrOutOfSequence),
		errors.Is(err, apperrors.ErrClosedInstallment),
		errors.Is(err, apperrors.ErrNonPositiveAmount):
		status = http.StatusConflict
	}

	var biz *apperrors.BusinessError
	if errors.As(err, &biz) {
		response.ErrorWithCode(w, status, biz.Code, biz.Message, nil)
		return
	}

	response.Error(w, status, err.Error(), nil)
}
