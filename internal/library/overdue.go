package library

import (
	"context"
	"sort"
)

// Overdue lists active loans that are at least one whole day past due, most
// overdue first. A loan less than 24 hours late still has DaysRemaining 0 and
// is reported as urgent by MyLoans, not here.
func (e *Engine) Overdue(ctx context.Context) ([]LoanView, error) {
	now := e.clock()
	loans, err := e.store.Loans().ListOverdue(ctx, now)
	if err != nil {
		return nil, err
	}
	out := make([]LoanView, 0, len(loans))
	for _, l := range loans {
		if v := NewLoanView(l, now); v.IsOverdue {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysRemaining < out[j].DaysRemaining })
	return out, nil
}

// RemindOverdue publishes a LoanOverdue event per loan listed by Overdue and
// returns how many were accepted by the publisher.
func (e *Engine) RemindOverdue(ctx context.Context) (int, error) {
	overdue, err := e.Overdue(ctx)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, v := range overdue {
		if e.publish(ctx, EventLoanOverdue, v.Loan, "", -v.DaysRemaining) {
			sent++
		}
	}
	return sent, nil
}
