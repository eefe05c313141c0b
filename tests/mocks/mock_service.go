package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/library-lending/internal/domain"
	"github.com/segyhp/library-lending/internal/service"
)

type MockLendingService struct {
	mock.Mock
}

func (m *MockLendingService) Borrow(ctx context.Context, userID string, titleID uuid.UUID, now time.Time) (*domain.Loan, error) {
	args := m.Called(ctx, userID, titleID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLendingService) Return(ctx context.Context, loanID uuid.UUID, now time.Time, opts ...service.LoanOption) (*domain.Loan, error) {
	args := m.Called(ctx, loanID, now, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLendingService) ReturnByTitle(ctx context.Context, userID string, titleID uuid.UUID, now time.Time) (*domain.Loan, error) {
	args := m.Called(ctx, userID, titleID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLendingService) Extend(ctx context.Context, loanID uuid.UUID, now time.Time, opts ...service.LoanOption) (*domain.Loan, error) {
	args := m.Called(ctx, loanID, now, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLendingService) Reserve(ctx context.Context, userID string, titleID uuid.UUID) (*domain.Reservation, error) {
	args := m.Called(ctx, userID, titleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockLendingService) CancelReservation(ctx context.Context, userID string, titleID uuid.UUID) error {
	args := m.Called(ctx, userID, titleID)
	return args.Error(0)
}

func (m *MockLendingService) PayFine(ctx context.Context, userID, reference string) (*domain.FineSettlement, error) {
	args := m.Called(ctx, userID, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FineSettlement), args.Error(1)
}

func (m *MockLendingService) ConfirmPayment(ctx context.Context, userID, reference string, amount decimal.Decimal) (*domain.FineSettlement, error) {
	args := m.Called(ctx, userID, reference, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FineSettlement), args.Error(1)
}

func (m *MockLendingService) ListOpenLoans(ctx context.Context, userID string) ([]*domain.OpenLoanView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OpenLoanView), args.Error(1)
}

func (m *MockLendingService) ListBorrowedLoans(ctx context.Context) ([]*domain.BorrowedLoanView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.BorrowedLoanView), args.Error(1)
}

func (m *MockLendingService) LoanHistory(ctx context.Context, userID string) ([]*domain.LoanHistoryEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanHistoryEntry), args.Error(1)
}

func (m *MockLendingService) CreateTitle(ctx context.Context, req *domain.CreateTitleRequest) (*domain.Title, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Title), args.Error(1)
}

func (m *MockLendingService) InventoryReport(ctx context.Context) (*domain.InventoryReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InventoryReport), args.Error(1)
}

// NewMockLendingService creates a new mock lending service instance
func NewMockLendingService() *MockLendingService {
	return &MockLendingService{}
}
