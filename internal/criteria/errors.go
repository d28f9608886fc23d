package criteria

import "fmt"

// MissingDataError reports that a required input of a predicate is absent.
type MissingDataError struct {
	What string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("missing data: %s", e.What)
}

// AlgorithmError reports that a decision procedure could not satisfy one of
// its internal requirements, e.g. unresolved exon geometry.
type AlgorithmError struct {
	Msg string
	Err error
}

func (e *AlgorithmError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("algorithm error: %s: %v", e.Msg, e.Err)
	}
	return "algorithm error: " + e.Msg
}

func (e *AlgorithmError) Unwrap() error { return e.Err }

func missing(what string) error { return &MissingDataError{What: what} }
