package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/library-lending/internal/domain"
	"github.com/segyhp/library-lending/internal/repository"
)

type MockTitleRepository struct {
	mock.Mock
}

func (m *MockTitleRepository) Create(ctx context.Context, title *domain.Title) error {
	args := m.Called(ctx, title)
	return args.Error(0)
}

func (m *MockTitleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Title, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Title), args.Error(1)
}

func (m *MockTitleRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Title, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Title), args.Error(1)
}

func (m *MockTitleRepository) UpdateAvailableCopies(ctx context.Context, id uuid.UUID, available int) error {
	args := m.Called(ctx, id, available)
	return args.Error(0)
}

func (m *MockTitleRepository) List(ctx context.Context) ([]*domain.Title, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Title), args.Error(1)
}

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) FindOpenByUserAndTitle(ctx context.Context, userID string, titleID uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, userID, titleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) CountOpenByUser(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockLoanRepository) CountOpenByTitle(ctx context.Context, titleID uuid.UUID) (int, error) {
	args := m.Called(ctx, titleID)
	return args.Int(0), args.Error(1)
}

func (m *MockLoanRepository) HasOutstandingFine(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoanRepository) ListOutstandingFinesForUpdate(ctx context.Context, userID string) ([]*domain.Loan, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) MarkFinesPaid(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	args := m.Called(ctx, ids, at)
	return args.Error(0)
}

type MockReservationRepository struct {
	mock.Mock
}

func (m *MockReservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	args := m.Called(ctx, reservation)
	return args.Error(0)
}

func (m *MockReservationRepository) FindForUpdate(ctx context.Context, userID string, titleID uuid.UUID, status string) (*domain.Reservation, error) {
	args := m.Called(ctx, userID, titleID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationRepository) OldestPendingForUpdate(ctx context.Context, titleID uuid.UUID) (*domain.Reservation, error) {
	args := m.Called(ctx, titleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, at time.Time) error {
	args := m.Called(ctx, id, status, at)
	return args.Error(0)
}

func (m *MockReservationRepository) ListPendingByTitle(ctx context.Context, titleID uuid.UUID) ([]*domain.Reservation, error) {
	args := m.Called(ctx, titleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Reservation), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, receipt *domain.PaymentReceipt) error {
	args := m.Called(ctx, receipt)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByReference(ctx context.Context, reference string) (*domain.PaymentReceipt, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentReceipt), args.Error(1)
}

type MockUserLocker struct {
	mock.Mock
}

func (m *MockUserLocker) Lock(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) OpenLoans(ctx context.Context, userID string) ([]*domain.OpenLoanView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.OpenLoanView), args.Error(1)
}

func (m *MockReportRepository) LoanHistory(ctx context.Context, userID string) ([]*domain.LoanHistoryEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanHistoryEntry), args.Error(1)
}

func (m *MockReportRepository) AllOpenLoans(ctx context.Context) ([]*domain.BorrowedLoanView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.BorrowedLoanView), args.Error(1)
}

func (m *MockReportRepository) LoansDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.DueLoan, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DueLoan), args.Error(1)
}

func (m *MockReportRepository) UnpaidFines(ctx context.Context) ([]*domain.UnpaidFine, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.UnpaidFine), args.Error(1)
}

func (m *MockReportRepository) Inventory(ctx context.Context) (*domain.InventoryReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InventoryReport), args.Error(1)
}

// MockStore runs every unit of work directly against the mock repositories
type MockStore struct {
	mock.Mock
	Titles       *MockTitleRepository
	Loans        *MockLoanRepository
	Reservations *MockReservationRepository
	Payments     *MockPaymentRepository
	Users        *MockUserLocker
	ReportRepo   *MockReportRepository
}

func NewMockStore() *MockStore {
	return &MockStore{
		Titles:       &MockTitleRepository{},
		Loans:        &MockLoanRepository{},
		Reservations: &MockReservationRepository{},
		Payments:     &MockPaymentRepository{},
		Users:        &MockUserLocker{},
		ReportRepo:   &MockReportRepository{},
	}
}

func (m *MockStore) Atomic(ctx context.Context, fn repository.TxFunc) error {
	return fn(ctx, repository.Repositories{
		Titles:       m.Titles,
		Loans:        m.Loans,
		Reservations: m.Reservations,
		Payments:     m.Payments,
		Users:        m.Users,
	})
}

func (m *MockStore) Reports() repository.ReportRepository {
	return m.ReportRepo
}

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// AssertExpectations checks every mock repository behind the store
func (m *MockStore) AssertExpectations(t mock.TestingT) {
	m.Mock.AssertExpectations(t)
	m.Titles.AssertExpectations(t)
	m.Loans.AssertExpectations(t)
	m.Reservations.AssertExpectations(t)
	m.Payments.AssertExpectations(t)
	m.Users.AssertExpectations(t)
	m.ReportRepo.AssertExpectations(t)
}

// MockNotifier records notifications handed to it
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
