package errors

import (
	"errors"
	"testing"
)

func TestWrap(t *testing.T) {
	if Wrap(nil, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	err := Wrap(ErrNotFound, "fund lookup")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("wrapped error should match sentinel: %v", err)
	}
	if err.Error() != "fund lookup: not found" {
		t.Errorf("message: %q", err.Error())
	}
}

func TestWrapf(t *testing.T) {
	if Wrapf(nil, "x %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
	err := Wrapf(ErrInvalidArg, "profile %d", 42)
	if !errors.Is(err, ErrInvalidArg) {
		t.Errorf("wrapped error should match sentinel: %v", err)
	}
}
