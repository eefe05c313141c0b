package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/library-lending/internal/domain"
)

var dialect = goqu.Dialect("postgres")

type reportRepository struct {
	db sqlx.QueryerContext
}

func NewReportRepository(db sqlx.QueryerContext) ReportRepository {
	return &reportRepository{db: db}
}

func loansWithTitles() *goqu.SelectDataset {
	return dialect.From(goqu.T("loans").As("l")).
		Join(goqu.T("titles").As("t"), goqu.On(goqu.I("t.id").Eq(goqu.I("l.title_id")))).
		Prepared(true)
}

func (r *reportRepository) OpenLoans(ctx context.Context, userID string) ([]*domain.OpenLoanView, error) {
	ds := loansWithTitles().
		Select(
			goqu.I("l.id").As("loan_id"),
			goqu.I("l.title_id"),
			goqu.I("t.name").As("title"),
			goqu.I("l.due_at"),
		).
		Where(
			goqu.I("l.user_id").Eq(userID),
			goqu.I("l.returned_at").IsNull(),
		).
		Order(goqu.I("l.due_at").Asc(), goqu.I("l.id").Asc())

	var views []*domain.OpenLoanView
	if err := r.selectInto(ctx, &views, ds); err != nil {
		return nil, err
	}
	return views, nil
}

func (r *reportRepository) LoanHistory(ctx context.Context, userID string) ([]*domain.LoanHistoryEntry, error) {
	ds := loansWithTitles().
		Select(
			goqu.I("l.id"),
			goqu.I("l.user_id"),
			goqu.I("l.title_id"),
			goqu.I("l.borrowed_at"),
			goqu.I("l.due_at"),
			goqu.I("l.returned_at"),
			goqu.I("l.extensions"),
			goqu.I("l.fine_amount"),
			goqu.I("l.fine_paid"),
			goqu.I("l.created_at"),
			goqu.I("l.updated_at"),
			goqu.I("t.name").As("title"),
		).
		Where(goqu.I("l.user_id").Eq(userID)).
		Order(goqu.I("l.borrowed_at").Desc(), goqu.I("l.id").Desc())

	var entries []*domain.LoanHistoryEntry
	if err := r.selectInto(ctx, &entries, ds); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *reportRepository) AllOpenLoans(ctx context.Context) ([]*domain.BorrowedLoanView, error) {
	ds := loansWithTitles().
		Select(
			goqu.I("l.id").As("loan_id"),
			goqu.I("l.user_id"),
			goqu.I("l.title_id"),
			goqu.I("t.name").As("title"),
			goqu.I("l.borrowed_at"),
			goqu.I("l.due_at"),
			goqu.I("l.extensions"),
		).
		Where(goqu.I("l.returned_at").IsNull()).
		Order(goqu.I("l.due_at").Asc(), goqu.I("l.id").Asc())

	var loans []*domain.BorrowedLoanView
	if err := r.selectInto(ctx, &loans, ds); err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *reportRepository) LoansDueBefore(ctx context.Context, cutoff time.Time) ([]*domain.DueLoan, error) {
	ds := loansWithTitles().
		Select(
			goqu.I("l.id").As("loan_id"),
			goqu.I("l.user_id"),
			goqu.I("l.title_id"),
			goqu.I("t.name").As("title"),
			goqu.I("l.due_at"),
		).
		Where(
			goqu.I("l.returned_at").IsNull(),
			goqu.I("l.due_at").Lte(cutoff),
		).
		Order(goqu.I("l.due_at").Asc(), goqu.I("l.id").Asc())

	var loans []*domain.DueLoan
	if err := r.selectInto(ctx, &loans, ds); err != nil {
		return nil, err
	}
	return loans, nil
}

func (r *reportRepository) UnpaidFines(ctx context.Context) ([]*domain.UnpaidFine, error) {
	ds := loansWithTitles().
		Select(
			goqu.I("l.id").As("loan_id"),
			goqu.I("l.user_id"),
			goqu.I("l.title_id"),
			goqu.I("t.name").As("title"),
			goqu.I("l.fine_amount"),
		).
		Where(
			goqu.I("l.fine_amount").Gt(0),
			goqu.I("l.fine_paid").IsFalse(),
		).
		Order(goqu.I("l.user_id").Asc(), goqu.I("l.id").Asc())

	var fines []*domain.UnpaidFine
	if err := r.selectInto(ctx, &fines, ds); err != nil {
		return nil, err
	}
	return fines, nil
}

func (r *reportRepository) Inventory(ctx context.Context) (*domain.InventoryReport, error) {
	var report domain.InventoryReport

	catalog := dialect.From("titles").Prepared(true).Select(
		goqu.COUNT(goqu.Star()).As("titles"),
		goqu.COALESCE(goqu.SUM("total_copies"), 0).As("total_copies"),
		goqu.COALESCE(goqu.SUM("available_copies"), 0).As("available_copies"),
	)
	if err := r.getInto(ctx, &report, catalog); err != nil {
		return nil, err
	}

	openLoans := dialect.From("loans").Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C("returned_at").IsNull())
	if err := r.getInto(ctx, &report.OpenLoans, openLoans); err != nil {
		return nil, err
	}

	pending := dialect.From("reservations").Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C("status").Eq(domain.ReservationStatusPending))
	if err := r.getInto(ctx, &report.PendingReservations, pending); err != nil {
		return nil, err
	}

	fines := dialect.From("loans").Prepared(true).
		Select(goqu.COALESCE(goqu.SUM("fine_amount"), 0)).
		Where(goqu.C("fine_amount").Gt(0), goqu.C("fine_paid").IsFalse())
	if err := r.getInto(ctx, &report.OutstandingFines, fines); err != nil {
		return nil, err
	}

	return &report, nil
}

func (r *reportRepository) selectInto(ctx context.Context, dest interface{}, ds *goqu.SelectDataset) error {
	query, args, err := ds.ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return translate(sqlx.SelectContext(ctx, r.db, dest, query, args...))
}

func (r *reportRepository) getInto(ctx context.Context, dest interface{}, ds *goqu.SelectDataset) error {
	query, args, err := ds.ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return translate(sqlx.GetContext(ctx, r.db, dest, query, args...))
}
