package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/library-lending/internal/domain"
)

// MemoryStore keeps lending state in process memory. Units of work are
// serialized by one mutex and rolled back from a snapshot on error.
type MemoryStore struct {
	mu   sync.Mutex
	data *memoryData
}

type memoryData struct {
	titles       map[uuid.UUID]domain.Title
	loans        map[uuid.UUID]domain.Loan
	reservations map[uuid.UUID]domain.Reservation
	payments     map[string]domain.PaymentReceipt
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: &memoryData{
			titles:       make(map[uuid.UUID]domain.Title),
			loans:        make(map[uuid.UUID]domain.Loan),
			reservations: make(map[uuid.UUID]domain.Reservation),
			payments:     make(map[string]domain.PaymentReceipt),
		},
	}
}

func (s *MemoryStore) Atomic(ctx context.Context, fn TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.data.clone()
	repos := Repositories{
		Titles:       &memoryTitles{data: s.data},
		Loans:        &memoryLoans{data: s.data},
		Reservations: &memoryReservations{data: s.data},
		Payments:     &memoryPayments{data: s.data},
		Users:        noopLocker{},
	}

	if err := fn(ctx, repos); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) Reports() ReportRepository {
	return &memoryReports{store: s}
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (d *memoryData) clone() *memoryData {
	c := &memoryData{
		titles:       make(map[uuid.UUID]domain.Title, len(d.titles)),
		loans:        make(map[uuid.UUID]domain.Loan, len(d.loans)),
		reservations: make(map[uuid.UUID]domain.Reservation, len(d.reservations)),
		payments:     make(map[string]domain.PaymentReceipt, len(d.payments)),
	}
	for k, v := range d.titles {
		c.titles[k] = v
	}
	for k, v := range d.loans {
		c.loans[k] = copyLoan(v)
	}
	for k, v := range d.reservations {
		c.reservations[k] = v
	}
	for k, v := range d.payments {
		c.payments[k] = v
	}
	return c
}

func copyLoan(l domain.Loan) domain.Loan {
	if l.ReturnedAt != nil {
		returned := *l.ReturnedAt
		l.ReturnedAt = &returned
	}
	return l
}

// The single store mutex already serializes every unit of work.
type noopLocker struct{}

func (noopLocker) Lock(ctx context.Context, userID string) error {
	return ctx.Err()
}

type memoryTitles struct {
	data *memoryData
}

func (r *memoryTitles) Create(ctx context.Context, title *domain.Title) error {
	if _, ok := r.data.titles[title.ID]; ok {
		return ErrDuplicate
	}
	if title.ISBN != "" {
		for _, existing := range r.data.titles {
			if existing.ISBN == title.ISBN {
				return ErrDuplicate
			}
		}
	}
	r.data.titles[title.ID] = *title
	return nil
}

func (r *memoryTitles) GetByID(ctx context.Context, id uuid.UUID) (*domain.Title, error) {
	title, ok := r.data.titles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &title, nil
}

func (r *memoryTitles) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Title, error) {
	return r.GetByID(ctx, id)
}

func (r *memoryTitles) UpdateAvailableCopies(ctx context.Context, id uuid.UUID, available int) error {
	title, ok := r.data.titles[id]
	if !ok {
		return ErrNotFound
	}
	title.AvailableCopies = available
	title.UpdatedAt = time.Now().UTC()
	r.data.titles[id] = title
	return nil
}

func (r *memoryTitles) List(ctx context.Context) ([]*domain.Title, error) {
	titles := make([]*domain.Title, 0, len(r.data.titles))
	for _, t := range r.data.titles {
		title := t
		titles = append(titles, &title)
	}
	sort.Slice(titles, func(i, j int) bool {
		if titles[i].Name != titles[j].Name {
			return titles[i].Name < titles[j].Name
		}
		return titles[i].ID.String() < titles[j].ID.String()
	})
	return titles, nil
}

type memoryLoans struct {
	data *memoryData
}

func (r *memoryLoans) Create(ctx context.Context, loan *domain.Loan) error {
	if _, ok := r.data.loans[loan.ID]; ok {
		return ErrDuplicate
	}
	r.data.loans[loan.ID] = copyLoan(*loan)
	return nil
}

func (r *memoryLoans) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	loan, ok := r.data.loans[id]
	if !ok {
		return nil, ErrNotFound
	}
	loan = copyLoan(loan)
	return &loan, nil
}

func (r *memoryLoans) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.GetByID(ctx, id)
}

func (r *memoryLoans) FindOpenByUserAndTitle(ctx context.Context, userID string, titleID uuid.UUID) (*domain.Loan, error) {
	var found *domain.Loan
	for _, l := range r.data.loans {
		if l.UserID != userID || l.TitleID != titleID || !l.IsOpen() {
			continue
		}
		if found == nil || l.BorrowedAt.Before(found.BorrowedAt) ||
			(l.BorrowedAt.Equal(found.BorrowedAt) && l.ID.String() < found.ID.String()) {
			loan := copyLoan(l)
			found = &loan
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (r *memoryLoans) Update(ctx context.Context, loan *domain.Loan) error {
	existing, ok := r.data.loans[loan.ID]
	if !ok {
		return ErrNotFound
	}
	existing.DueAt = loan.DueAt
	existing.ReturnedAt = loan.ReturnedAt
	existing.Extensions = loan.Extensions
	existing.FineAmount = loan.FineAmount
	existing.FinePaid = loan.FinePaid
	existing.UpdatedAt = loan.UpdatedAt
	r.data.loans[loan.ID] = copyLoan(existing)
	return nil
}

func (r *memoryLoans) CountOpenByUser(ctx context.Context, userID string) (int, error) {
	count := 0
	for _, l := range r.data.loans {
		if l.UserID == userID && l.IsOpen() {
			count++
		}
	}
	return count, nil
}

func (r *memoryLoans) CountOpenByTitle(ctx context.Context, titleID uuid.UUID) (int, error) {
	count := 0
	for _, l := range r.data.loans {
		if l.TitleID == titleID && l.IsOpen() {
			count++
		}
	}
	return count, nil
}

func (r *memoryLoans) HasOutstandingFine(ctx context.Context, userID string) (bool, error) {
	for _, l := range r.data.loans {
		if l.UserID == userID && l.HasOutstandingFine() {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryLoans) ListOutstandingFinesForUpdate(ctx context.Context, userID string) ([]*domain.Loan, error) {
	var loans []*domain.Loan
	for _, l := range r.data.loans {
		if l.UserID == userID && l.HasOutstandingFine() {
			loan := copyLoan(l)
			loans = append(loans, &loan)
		}
	}
	sort.Slice(loans, func(i, j int) bool {
		a, b := loans[i].ReturnedAt, loans[j].ReturnedAt
		if !a.Equal(*b) {
			return a.Before(*b)
		}
		return loans[i].ID.String() < loans[j].ID.String()
	})
	return loans, nil
}

func (r *memoryLoans) MarkFinesPaid(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	for _, id := range ids {
		loan, ok := r.data.loans[id]
		if !ok || loan.FinePaid {
			return ErrNotFound
		}
		loan.FinePaid = true
		loan.UpdatedAt = at
		r.data.loans[id] = loan
	}
	return nil
}

type memoryReservations struct {
	data *memoryData
}

func (r *memoryReservations) Create(ctx context.Context, reservation *domain.Reservation) error {
	if _, ok := r.data.reservations[reservation.ID]; ok {
		return ErrDuplicate
	}
	if reservation.Status == domain.ReservationStatusPending {
		for _, existing := range r.data.reservations {
			if existing.Status == domain.ReservationStatusPending &&
				existing.UserID == reservation.UserID &&
				existing.TitleID == reservation.TitleID {
				return ErrDuplicate
			}
		}
	}
	r.data.reservations[reservation.ID] = *reservation
	return nil
}

func (r *memoryReservations) FindForUpdate(ctx context.Context, userID string, titleID uuid.UUID, status string) (*domain.Reservation, error) {
	queue := r.filter(func(res domain.Reservation) bool {
		return res.UserID == userID && res.TitleID == titleID && res.Status == status
	})
	if len(queue) == 0 {
		return nil, ErrNotFound
	}
	return queue[0], nil
}

func (r *memoryReservations) OldestPendingForUpdate(ctx context.Context, titleID uuid.UUID) (*domain.Reservation, error) {
	queue, _ := r.ListPendingByTitle(ctx, titleID)
	if len(queue) == 0 {
		return nil, ErrNotFound
	}
	return queue[0], nil
}

func (r *memoryReservations) UpdateStatus(ctx context.Context, id uuid.UUID, status string, at time.Time) error {
	reservation, ok := r.data.reservations[id]
	if !ok {
		return ErrNotFound
	}
	if status == domain.ReservationStatusPending {
		for otherID, other := range r.data.reservations {
			if otherID != id && other.Status == domain.ReservationStatusPending &&
				other.UserID == reservation.UserID && other.TitleID == reservation.TitleID {
				return ErrDuplicate
			}
		}
	}
	reservation.Status = status
	reservation.UpdatedAt = at
	r.data.reservations[id] = reservation
	return nil
}

func (r *memoryReservations) ListPendingByTitle(ctx context.Context, titleID uuid.UUID) ([]*domain.Reservation, error) {
	return r.filter(func(res domain.Reservation) bool {
		return res.TitleID == titleID && res.Status == domain.ReservationStatusPending
	}), nil
}

// filter returns matching reservations in queue order
func (r *memoryReservations) filter(match func(domain.Reservation) bool) []*domain.Reservation {
	var out []*domain.Reservation
	for _, res := range r.data.reservations {
		if match(res) {
			reservation := res
			out = append(out, &reservation)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QueuedBefore(out[j])
	})
	return out
}

type memoryPayments struct {
	data *memoryData
}

func (r *memoryPayments) Create(ctx context.Context, receipt *domain.PaymentReceipt) error {
	if _, ok := r.data.payments[receipt.Reference]; ok {
		return ErrDuplicate
	}
	r.data.payments[receipt.Reference] = *receipt
	return nil
}

func (r *memoryPayments) GetByReference(ctx context.Context, reference string) (*domain.PaymentReceipt, error) {
	receipt, ok := r.data.payments[reference]
	if !ok {
		return nil, ErrNotFound
	}
	return &receipt, nil
}

type memoryReports struct {
	store *MemoryStore
}

func (r *memoryReports) view() *memoryData {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.data.clone()
}

func (r *memoryReports) OpenLoans(ctx context.Context, userID string) ([]*domain.OpenLoanView, error) {
	data := r.view()

	var views []*domain.OpenLoanView
	for _, l := range data.loans {
		if l.UserID != userID || !l.IsOpen() {
			continue
		}
		views = append(views, &domain.OpenLoanView{
			LoanID:  l.ID,
			TitleID: l.TitleID,
			Title:   data.titles[l.TitleID].Name,
			DueAt:   l.DueAt,
		})
	}
	sort.Slice(views, func(i, j int) bool {
		if !views[i].DueAt.Equal(views[j].DueAt) {
			return views[i].DueAt.Before(views[j].DueAt)
		}
		return views[i].LoanID.String() < views[j].LoanID.String()
	})
	return views, nil
}

func (r *memoryReports) LoanHistory(ctx context.Context, userID string) ([]*domain.LoanHistoryEntry, error) {
	data := r.view()

	var entries []*domain.LoanHistoryEntry
	for _, l := range data.loans {
		if l.UserID != userID {
			continue
		}
		entries = append(entries, &domain.LoanHistoryEntry{
			Loan:  l,
			Title: data.titles[l.TitleID].Name,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].BorrowedAt.Equal(entries[j].BorrowedAt) {
			return entries[i].BorrowedAt.After(entries[j].BorrowedAt)
		}
		return entries[i].ID.String() > entries[j].ID.String()
	})
	return entries, nil
}

func (r *memoryReports) AllOpenLoans(ctx context.Context) ([]*domain.BorrowedLoanView, error) {
	data := r.view()

	var views []*domain.BorrowedLoanView
	for _, l := range data.loans {
		if !l.IsOpen() {
			continue
		}
		views = append(views, &domain.BorrowedLoanView{
			LoanID:     l.ID,
			UserID:     l.UserID,
			TitleID:    l.TitleID,
			Title:      data.titles[l.TitleID].Name,
			BorrowedAt: l.BorrowedAt,
			DueAt:      l.DueAt,
			Extensions: l.Extensions,
		})
	}
	sort.Slice(views, func(i, j int) bool {
		if !views[i].DueAt.Equal(views[j].DueAt) {
			return views[i].DueAt.Before(views[j].DueAt)
		}
		return views[i].LoanID.String() < views[j].LoanID.String()
	})
	return views, nil
}

func (r *memoryReports) LoansDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.DueLoan, error) {
	data := r.view()

	var due []*domain.DueLoan
	for _, l := range data.loans {
		if !l.IsOpen() || l.DueAt.After(cutoff) {
			continue
		}
		due = append(due, &domain.DueLoan{
			LoanID:  l.ID,
			UserID:  l.UserID,
			TitleID: l.TitleID,
			Title:   data.titles[l.TitleID].Name,
			DueAt:   l.DueAt,
		})
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].DueAt.Equal(due[j].DueAt) {
			return due[i].DueAt.Before(due[j].DueAt)
		}
		return due[i].LoanID.String() < due[j].LoanID.String()
	})
	return due, nil
}

func (r *memoryReports) UnpaidFines(ctx context.Context) ([]*domain.UnpaidFine, error) {
	data := r.view()

	var fines []*domain.UnpaidFine
	for _, l := range data.loans {
		if !l.HasOutstandingFine() {
			continue
		}
		fines = append(fines, &domain.UnpaidFine{
			LoanID:     l.ID,
			UserID:     l.UserID,
			TitleID:    l.TitleID,
			Title:      data.titles[l.TitleID].Name,
			FineAmount: l.FineAmount,
		})
	}
	sort.Slice(fines, func(i, j int) bool {
		if c := strings.Compare(fines[i].UserID, fines[j].UserID); c != 0 {
			return c < 0
		}
		return fines[i].LoanID.String() < fines[j].LoanID.String()
	})
	return fines, nil
}

func (r *memoryReports) Inventory(ctx context.Context) (*domain.InventoryReport, error) {
	data := r.view()

	report := &domain.InventoryReport{OutstandingFines: decimal.Zero}
	for _, t := range data.titles {
		report.Titles++
		report.TotalCopies += t.TotalCopies
		report.AvailableCopies += t.AvailableCopies
	}
	for _, l := range data.loans {
		if l.IsOpen() {
			report.OpenLoans++
		}
		if l.HasOutstandingFine() {
			report.OutstandingFines = report.OutstandingFines.Add(l.FineAmount)
		}
	}
	for _, res := range data.reservations {
		if res.Status == domain.ReservationStatusPending {
			report.PendingReservations++
		}
	}
	return report, nil
}
