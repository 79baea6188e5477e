package library

type Status string

const (
	StatusBorrowed Status = "BORROWED"
	StatusReturned Status = "RETURNED"
)

// transitions a loan may take. Renewal keeps a loan BORROWED.
var validNext = map[Status]map[Status]bool{
	StatusBorrowed: {StatusBorrowed: true, StatusReturned: true},
	StatusReturned: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}
