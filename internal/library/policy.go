package library

import (
	"errors"
	"fmt"
	"time"
)

const day = 24 * time.Hour

// RenewalCap is the hard ceiling on renewals per loan. Policy may only tighten it.
const RenewalCap = 2

// Policy holds the lending rules. The zero value is not usable; start from DefaultPolicy.
type Policy struct {
	LoanPeriod    time.Duration
	RenewalPeriod time.Duration
	MaxRenewals   int

	// AllowRenewalWhenOverdue decides whether a loan past its due date may still
	// be renewed. When false such a renewal fails with INVALID_STATE.
	AllowRenewalWhenOverdue bool

	// MaxActiveLoans caps concurrent BORROWED loans per borrower. 0 disables the cap.
	MaxActiveLoans int
}

func DefaultPolicy() Policy {
	return Policy{
		LoanPeriod:              14 * day,
		RenewalPeriod:           7 * day,
		MaxRenewals:             RenewalCap,
		AllowRenewalWhenOverdue: true,
	}
}

func (p Policy) Validate() error {
	switch {
	case p.LoanPeriod <= 0:
		return errors.New("policy: loan period must be positive")
	case p.RenewalPeriod <= 0:
		return errors.New("policy: renewal period must be positive")
	case p.MaxRenewals < 0:
		return errors.New("policy: max renewals must not be negative")
	case p.MaxRenewals > RenewalCap:
		return fmt.Errorf("policy: max renewals must not exceed %d", RenewalCap)
	case p.MaxActiveLoans < 0:
		return errors.New("policy: max active loans must not be negative")
	}
	return nil
}
