package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"github.com/segyhp/library-lending/internal/domain"
	"github.com/segyhp/library-lending/internal/service"
	"github.com/segyhp/library-lending/pkg/response"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LendingService is the coordinator surface the HTTP layer drives
type LendingService interface {
	Borrow(ctx context.Context, userID string, titleID uuid.UUID, now time.Time) (*domain.Loan, error)
	Return(ctx context.Context, loanID uuid.UUID, now time.Time, opts ...service.LoanOption) (*domain.Loan, error)
	ReturnByTitle(ctx context.Context, userID string, titleID uuid.UUID, now time.Time) (*domain.Loan, error)
	Extend(ctx context.Context, loanID uuid.UUID, now time.Time, opts ...service.LoanOption) (*domain.Loan, error)
	Reserve(ctx context.Context, userID string, titleID uuid.UUID) (*domain.Reservation, error)
	CancelReservation(ctx context.Context, userID string, titleID uuid.UUID) error
	PayFine(ctx context.Context, userID, reference string) (*domain.FineSettlement, error)
	ConfirmPayment(ctx context.Context, userID, reference string, amount decimal.Decimal) (*domain.FineSettlement, error)
	ListOpenLoans(ctx context.Context, userID string) ([]*domain.OpenLoanView, error)
	LoanHistory(ctx context.Context, userID string) ([]*domain.LoanHistoryEntry, error)
	ListBorrowedLoans(ctx context.Context) ([]*domain.BorrowedLoanView, error)
	CreateTitle(ctx context.Context, req *domain.CreateTitleRequest) (*domain.Title, error)
	InventoryReport(ctx context.Context) (*domain.InventoryReport, error)
}

type LendingHandler struct {
	service   LendingService
	validator *validator.Validate
	now       func() time.Time
}

func NewLendingHandler(service LendingService) *LendingHandler {
	return &LendingHandler{
		service:   service,
		validator: NewValidator(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// NewValidator returns a validator that understands decimal fields
func NewValidator() *validator.Validate {
	v := validator.New()

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	// decimal_gt=N passes when the decimal field is strictly greater than N
	_ = v.RegisterValidation("decimal_gt", func(fl validator.FieldLevel) bool {
		value, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		bound, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return value.GreaterThan(bound)
	})

	return v
}

// decode reads a JSON body into req and validates it. An empty body is
// accepted for requests whose fields are all optional.
func (h *LendingHandler) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request body", err)
		return false
	}
	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.BadRequest(w, "Invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}
