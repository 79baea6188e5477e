package library

import "time"

type Book struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	ISBN      string    `json:"isbn"`
	Category  string    `json:"category"`
	Location  string    `json:"location"`
	Publisher string    `json:"publisher,omitempty"`
	CoverURL  string    `json:"coverUrl,omitempty"`
	Total     int       `json:"total"`
	Available int       `json:"available"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Loan is one copy held by one borrower. Loans are never deleted.
type Loan struct {
	ID            string     `json:"id"`
	BookID        string     `json:"bookId"`
	BookTitle     string     `json:"bookTitle"`
	BorrowerID    string     `json:"borrowerId"`
	BorrowedAt    time.Time  `json:"borrowedAt"`
	DueDate       time.Time  `json:"dueDate"`
	Status        Status     `json:"status"` // see status.go
	RenewCount    int        `json:"renewCount"`
	LastRenewedAt *time.Time `json:"lastRenewedAt,omitempty"`
	ReturnedAt    *time.Time `json:"returnedAt,omitempty"`
}

func (l Loan) Active() bool { return l.Status == StatusBorrowed }

type RenewResult struct {
	LoanID     string    `json:"loanId"`
	NewDueDate time.Time `json:"newDueDate"`
	RenewCount int       `json:"renewCount"`
}

type ReturnReceipt struct {
	LoanID     string    `json:"loanId"`
	BookID     string    `json:"bookId"`
	BookTitle  string    `json:"bookTitle"`
	ReturnedAt time.Time `json:"returnedAt"`
	Available  int       `json:"available"`
}

// BookPatch carries the admin-editable fields of a Book. Nil fields are left as is.
type BookPatch struct {
	Title     *string
	Author    *string
	Category  *string
	Location  *string
	Publisher *string
	CoverURL  *string
	Total     *int
}

// NewBook is the input for adding a title to the catalog.
type NewBook struct {
	ISBN      string
	Title     string
	Author    string
	Category  string
	Location  string
	Publisher string
	CoverURL  string
	Total     int
}
