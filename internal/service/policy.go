package service

import (
	"github.com/shopspring/decimal"

	"github.com/segyhp/library-lending/internal/config"
)

// Policy holds the lending rules applied by the loan tracker
type Policy struct {
	BorrowLimit   int
	LoanDays      int
	ExtensionDays int
	// MaxExtensions caps renewals per loan, 0 means unlimited
	MaxExtensions int
	FinePerDay    decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		BorrowLimit:   3,
		LoanDays:      14,
		ExtensionDays: 7,
		MaxExtensions: 0,
		FinePerDay:    decimal.NewFromInt(5),
	}
}

func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		BorrowLimit:   cfg.Business.BorrowLimit,
		LoanDays:      cfg.Business.LoanDays,
		ExtensionDays: cfg.Business.ExtensionDays,
		MaxExtensions: cfg.Business.MaxExtensions,
		FinePerDay:    cfg.GetFinePerDay(),
	}
}
