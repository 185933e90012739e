package domain

import "errors"

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("الدواء غير موجود")

// ValidationError reports missing or invalid input fields.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// InsufficientStockError reports a sale line requesting more units than are
// on hand for the named medicine.
type InsufficientStockError struct {
	MedicineName string
}

func (e *InsufficientStockError) Error() string {
	return "كمية غير كافية للدواء: " + e.MedicineName
}
