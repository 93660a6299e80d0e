package table

import (
	"errors"
	"fmt"
)

var (
	// ErrColumnNotFound is matched by *ColumnNotFoundError.
	ErrColumnNotFound = errors.New("column not found")
	// ErrTypeMismatch is matched by *TypeMismatchError.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrEmptyInput reports a statistic requested over zero values.
	ErrEmptyInput = errors.New("empty input")
	// ErrUndefinedStatistic reports a statistic with a zero or undefined denominator.
	ErrUndefinedStatistic = errors.New("undefined statistic")
	// ErrLengthMismatch reports columns of different lengths in one table.
	ErrLengthMismatch = errors.New("column length mismatch")
	// ErrDuplicateColumn reports two columns with the same name in one table.
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// ColumnNotFoundError names a column that is absent from a table.
type ColumnNotFoundError struct {
	Name string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column not found: %q", e.Name)
}

func (e *ColumnNotFoundError) Is(target error) bool { return target == ErrColumnNotFound }

// TypeMismatchError indicates an operation was asked to work on a column of
// the wrong kind, e.g. quartiles over text.
type TypeMismatchError struct {
	Column string
	Want   Kind
	Got    Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("column %q is %s, want %s", e.Column, e.Got, e.Want)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }
