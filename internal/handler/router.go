package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// RouterDeps are the pieces NewRouter wires together
type RouterDeps struct {
	Lending     *LendingHandler
	Health      *HealthHandler
	RateLimiter *RateLimiter
	Metrics     http.Handler
	Logger      *slog.Logger
}

func NewRouter(deps RouterDeps) *mux.Router {
	r := mux.NewRouter()
	r.Use(Recovery(deps.Logger), Logging(deps.Logger))

	r.HandleFunc("/health", deps.Health.Health).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", deps.Health.Ready).Methods(http.MethodGet)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(Identity)
	if deps.RateLimiter != nil {
		api.Use(deps.RateLimiter.Middleware)
	}

	h := deps.Lending

	api.HandleFunc("/payments/confirm", h.ConfirmPayment).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(RequireUser, RequireAdmin)
	admin.HandleFunc("/loans", h.IssueLoan).Methods(http.MethodPost)
	admin.HandleFunc("/loans", h.BorrowedLoans).Methods(http.MethodGet)
	admin.HandleFunc("/loans/{loanId}/extend", h.ApproveExtension).Methods(http.MethodPost)
	admin.HandleFunc("/returns", h.AcceptReturn).Methods(http.MethodPost)
	admin.HandleFunc("/titles", h.CreateTitle).Methods(http.MethodPost)
	admin.HandleFunc("/reports/inventory", h.InventoryReport).Methods(http.MethodGet)

	student := api.NewRoute().Subrouter()
	student.Use(RequireUser)
	student.HandleFunc("/loans", h.Borrow).Methods(http.MethodPost)
	student.HandleFunc("/loans", h.OpenLoans).Methods(http.MethodGet)
	student.HandleFunc("/loans/history", h.History).Methods(http.MethodGet)
	student.HandleFunc("/loans/{loanId}/return", h.Return).Methods(http.MethodPost)
	student.HandleFunc("/loans/{loanId}/extend", h.Extend).Methods(http.MethodPost)
	student.HandleFunc("/reservations", h.Reserve).Methods(http.MethodPost)
	student.HandleFunc("/reservations/{titleId}", h.CancelReservation).Methods(http.MethodDelete)
	student.HandleFunc("/fines/pay", h.PayFine).Methods(http.MethodPost)

	return r
}
