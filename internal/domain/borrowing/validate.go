package borrowing

import "time"

// ValidateExpectedReturnDate 预计归还日必须晚于今天
func ValidateExpectedReturnDate(expected, now time.Time) error {
	if !DateOf(expected).After(DateOf(now)) {
		return ErrInvalidDate.WithField(FieldExpectedReturnDate)
	}
	return nil
}

// ValidateActualReturnDate 实际归还日必须提供且晚于今天
func ValidateActualReturnDate(actual *time.Time, now time.Time) error {
	if actual == nil || !DateOf(*actual).After(DateOf(now)) {
		return ErrInvalidDate.WithField(FieldActualReturnDate)
	}
	return nil
}
