package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/segyhp/library-lending/internal/domain"
	"github.com/segyhp/library-lending/pkg/response"
)

// IssueLoan handles POST /api/v1/admin/loans, borrowing on behalf of a student
func (h *LendingHandler) IssueLoan(w http.ResponseWriter, r *http.Request) {
	var req domain.IssueLoanRequest
	if !h.decode(w, r, &req) {
		return
	}

	loan, err := h.service.Borrow(r.Context(), req.UserID, uuid.MustParse(req.TitleID), h.now())
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, domain.BorrowResponse{LoanID: loan.ID, DueAt: loan.DueAt})
}

// AcceptReturn handles POST /api/v1/admin/returns
func (h *LendingHandler) AcceptReturn(w http.ResponseWriter, r *http.Request) {
	var req domain.AcceptReturnRequest
	if !h.decode(w, r, &req) {
		return
	}

	loan, err := h.service.ReturnByTitle(r.Context(), req.UserID, uuid.MustParse(req.TitleID), h.now())
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, domain.ReturnResponse{LoanID: loan.ID, FineAmount: loan.FineAmount})
}

// ApproveExtension handles POST /api/v1/admin/loans/{loanId}/extend
func (h *LendingHandler) ApproveExtension(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathUUID(w, r, "loanId")
	if !ok {
		return
	}

	loan, err := h.service.Extend(r.Context(), loanID, h.now())
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, domain.ExtendResponse{LoanID: loan.ID, NewDueAt: loan.DueAt})
}

// CreateTitle handles POST /api/v1/admin/titles
func (h *LendingHandler) CreateTitle(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTitleRequest
	if !h.decode(w, r, &req) {
		return
	}

	title, err := h.service.CreateTitle(r.Context(), &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, title)
}

// InventoryReport handles GET /api/v1/admin/reports/inventory
func (h *LendingHandler) InventoryReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.InventoryReport(r.Context())
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, report)
}

// BorrowedLoans handles GET /api/v1/admin/loans, every copy currently out
func (h *LendingHandler) BorrowedLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.ListBorrowedLoans(r.Context())
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	if loans == nil {
		loans = []*domain.BorrowedLoanView{}
	}

	response.Success(w, loans)
}
