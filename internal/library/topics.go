package library

import "strings"

const TopicLoanEvents = "library.loan.events"

// PartitionKey = borrower id, so one borrower's inbox entries arrive in order.
func PartitionKey(borrowerID string) []byte { return []byte(borrowerID) }

// RoutingKey maps an event type to a topic-exchange key, e.g. LoanRenewed -> loan.renewed.
func RoutingKey(eventType string) string {
	return "loan." + strings.ToLower(strings.TrimPrefix(eventType, "Loan"))
}
