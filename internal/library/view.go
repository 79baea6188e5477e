package library

import (
	"math"
	"sort"
	"time"
)

const (
	AvailabilityAvailable   = "Available"
	AvailabilityUnavailable = "Unavailable"

	urgentWithinDays = 2
)

// BookView is a Book as shown to searchers. AvailabilityStatus is display only.
type BookView struct {
	Book
	AvailabilityStatus string `json:"availabilityStatus"`
}

func NewBookView(b Book) BookView {
	status := AvailabilityUnavailable
	if b.Available > 0 {
		status = AvailabilityAvailable
	}
	return BookView{Book: b, AvailabilityStatus: status}
}

// LoanView decorates a Loan with fields derived from the due date and the
// current instant. They are computed on every read and never stored.
type LoanView struct {
	Loan
	DaysRemaining int  `json:"daysRemaining"`
	IsOverdue     bool `json:"isOverdue"`
	IsUrgent      bool `json:"isUrgent"`
}

func NewLoanView(l Loan, now time.Time) LoanView {
	days := DaysRemaining(l.DueDate, now)
	return LoanView{
		Loan:          l,
		DaysRemaining: days,
		IsOverdue:     days < 0,
		IsUrgent:      days >= 0 && days <= urgentWithinDays,
	}
}

// DaysRemaining rounds the time left up to whole days, so a loan due in
// 36 hours has 2 days remaining and one 3 days past due has -3.
func DaysRemaining(due, now time.Time) int {
	return int(math.Ceil(due.Sub(now).Hours() / 24))
}

func loanViews(loans []Loan, now time.Time) []LoanView {
	out := make([]LoanView, 0, len(loans))
	for _, l := range loans {
		out = append(out, NewLoanView(l, now))
	}
	return out
}

func sortNewestFirst(loans []Loan) {
	sort.SliceStable(loans, func(i, j int) bool {
		return loans[i].BorrowedAt.After(loans[j].BorrowedAt)
	})
}
