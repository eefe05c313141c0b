package handler

import (
	"net/http"

	"github.com/segyhp/library-lending/internal/domain"
	"github.com/segyhp/library-lending/pkg/response"
)

// ConfirmPayment handles POST /api/v1/payments/confirm, called by the
// payment processor once a fine payment has cleared
func (h *LendingHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.ConfirmPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	settlement, err := h.service.ConfirmPayment(r.Context(), req.UserID, req.PaymentReference, req.Amount)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	writeSettlement(w, settlement)
}
