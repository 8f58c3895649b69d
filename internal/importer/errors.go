package importer

import (
	"errors"
	"fmt"
)

var (
	ErrMissingSheet  = errors.New("missing_sheet")
	ErrPeriodDate    = errors.New("invalid_period_date")
	ErrImportTimeout = errors.New("import_timeout")
	ErrBulkOperation = errors.New("bulk_operation_failed")
)

// BulkError is a fatal failure of a set-based write. It matches
// ErrBulkOperation with errors.Is and unwraps to the store error.
type BulkError struct {
	Op  string
	Err error
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("bulk %s: %v", e.Op, e.Err)
}

func (e *BulkError) Unwrap() error {
	return e.Err
}

func (e *BulkError) Is(target error) bool {
	return target == ErrBulkOperation
}
