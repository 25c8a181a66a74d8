package apperr

import (
	"errors"
	"fmt"
)

// CascadeError records a failed best-effort step that ran after a primary write.
type CascadeError struct {
	Step string
	Err  error
}

func (e CascadeError) Error() string {
	return fmt.Sprintf("cascade step %q: %v", e.Step, e.Err)
}

func (e CascadeError) Unwrap() error { return e.Err }

// JoinCascade folds step failures into one error, nil when there are none.
func JoinCascade(errs []CascadeError) error {
	if len(errs) == 0 {
		return nil
	}
	out := make([]error, len(errs))
	for i := range errs {
		out[i] = errs[i]
	}
	return errors.Join(out...)
}
