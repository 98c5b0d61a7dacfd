package db

import (
	"errors"
	"testing"
)

func TestError_WrapsOperation(t *testing.T) {
	inner := errors.New("connection reset")
	err := &Error{Op: OpSearch, Err: inner}

	if err.Error() != "FT.SEARCH: connection reset" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to reach the wrapped error")
	}
}
