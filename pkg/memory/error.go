package memory

// ValidationError is returned when a record violates a model invariant, such
// as an unknown kind value or an out-of-range importance score.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}
