package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/segyhp/library-lending/internal/domain"
	"github.com/segyhp/library-lending/internal/service"
	"github.com/segyhp/library-lending/pkg/response"
)

// Borrow handles POST /api/v1/loans
func (h *LendingHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	var req domain.BorrowRequest
	if !h.decode(w, r, &req) {
		return
	}

	loan, err := h.service.Borrow(r.Context(), UserID(r.Context()), uuid.MustParse(req.TitleID), h.now())
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, domain.BorrowResponse{LoanID: loan.ID, DueAt: loan.DueAt})
}

// Return handles POST /api/v1/loans/{loanId}/return
func (h *LendingHandler) Return(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanId")
	if !ok {
		return
	}

	loan, err := h.service.Return(r.Context(), loanID, h.now(), service.AsBorrower(UserID(r.Context())))
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, domain.ReturnResponse{LoanID: loan.ID, FineAmount: loan.FineAmount})
}

// Extend handles POST /api/v1/loans/{loanId}/extend
func (h *LendingHandler) Extend(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanId")
	if !ok {
		return
	}

	loan, err := h.service.Extend(r.Context(), loanID, h.now(), service.AsBorrower(UserID(r.Context())))
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, domain.ExtendResponse{LoanID: loan.ID, NewDueAt: loan.DueAt})
}

// OpenLoans handles GET /api/v1/loans
func (h *LendingHandler) OpenLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.ListOpenLoans(r.Context(), UserID(r.Context()))
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	if loans == nil {
		loans = []*domain.OpenLoanView{}
	}

	response.Success(w, loans)
}

// History handles GET /api/v1/loans/history
func (h *LendingHandler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.LoanHistory(r.Context(), UserID(r.Context()))
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	entries := make([]historyEntry, 0, len(history))
	for _, e := range history {
		entries = append(entries, historyEntry{LoanHistoryEntry: e, Status: e.Status()})
	}

	response.Success(w, entries)
}

type historyEntry struct {
	*domain.LoanHistoryEntry
	Status string `json:"status"`
}

// Reserve handles POST /api/v1/reservations
func (h *LendingHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req domain.ReserveRequest
	if !h.decode(w, r, &req) {
		return
	}

	reservation, err := h.service.Reserve(r.Context(), UserID(r.Context()), uuid.MustParse(req.TitleID))
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, domain.ReserveResponse{
		ReservationID: reservation.ID,
		RequestedAt:   reservation.RequestedAt,
	})
}

// CancelReservation handles DELETE /api/v1/reservations/{titleId}
func (h *LendingHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	titleID, ok := pathUUID(w, r, "titleId")
	if !ok {
		return
	}

	if err := h.service.CancelReservation(r.Context(), UserID(r.Context()), titleID); err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, map[string]string{"message": "Reservation cancelled"})
}

// PayFine handles POST /api/v1/fines/pay
func (h *LendingHandler) PayFine(w http.ResponseWriter, r *http.Request) {
	var req domain.PayFineRequest
	if !h.decode(w, r, &req) {
		return
	}

	settlement, err := h.service.PayFine(r.Context(), UserID(r.Context()), req.PaymentReference)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	writeSettlement(w, settlement)
}

func writeSettlement(w http.ResponseWriter, settlement *domain.FineSettlement) {
	if settlement.NothingDue {
		response.JSON(w, http.StatusOK, struct {
			*domain.FineSettlement
			Message string `json:"message"`
		}{settlement, "No pending fines to pay"})
		return
	}
	response.Success(w, settlement)
}
