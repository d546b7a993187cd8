package helpers

// RangeError is returned by generated setters when a value falls outside
// the bounds declared for its field. The backing field keeps its previous
// value.
type RangeError struct {
	Field   string
	Message string
}

func (e *RangeError) Error() string {
	return e.Message
}

// NewRangeError is what generated code calls. It returns error rather than
// *RangeError so the setter can return it directly.
func NewRangeError(field string, message string) error {
	return &RangeError{
		Field:   field,
		Message: message,
	}
}
