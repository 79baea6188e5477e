package notify

import (
	"fmt"

	"github.com/ariefcatur/go-campus-library/internal/library"
)

const (
	dateLayout      = "2006-01-02"
	defaultLocation = "the library counter"
)

// Render turns a lending event into the title and text shown in the inbox.
// ok is false for event types that produce no notification.
func Render(eventType string, p library.LoanEventPayload) (title, message string, ok bool) {
	switch eventType {
	case library.EventLoanReserved:
		loc := p.Location
		if loc == "" {
			loc = defaultLocation
		}
		return "Book Reserved",
			fmt.Sprintf("You have successfully reserved \"%s\". Pick it up from %s. Due date: %s.", p.BookTitle, loc, p.DueDate.Format(dateLayout)),
			true
	case library.EventLoanRenewed:
		return "Book Renewed",
			fmt.Sprintf("Your book \"%s\" has been renewed. New due date: %s.", p.BookTitle, p.DueDate.Format(dateLayout)),
			true
	case library.EventLoanReturned:
		return "Book Returned",
			fmt.Sprintf("Thank you for returning \"%s\".", p.BookTitle),
			true
	case library.EventLoanOverdue:
		return "Book Overdue",
			fmt.Sprintf("Your book \"%s\" is %d day(s) overdue. Please return it as soon as possible.", p.BookTitle, p.DaysOverdue),
			true
	}
	return "", "", false
}
