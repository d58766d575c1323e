package errors

import (
	"fmt"
)

// Fail wraps err with the operation name. Result has pattern 'op: err'
func Fail(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
