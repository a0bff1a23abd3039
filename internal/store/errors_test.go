package store

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorSentinelMatching(t *testing.T) {
	err := ErrAlreadyExists.WithMessage("uri has already been bookmarked")

	if !errors.Is(err, ErrAlreadyExists) {
		t.Error("derived error does not match its sentinel")
	}
	// Same HTTP code, different sentinel.
	if errors.Is(err, ErrConflict) {
		t.Error("derived error matches a foreign sentinel")
	}
}

func TestErrorWithCauseKeepsSentinel(t *testing.T) {
	cause := fmt.Errorf("UNIQUE constraint failed: tags.key")
	err := ErrConflict.WithMessage("tag created concurrently").WithCause(cause)

	if !errors.Is(err, ErrConflict) {
		t.Error("cause-wrapped error does not match its sentinel")
	}
	if got := err.Error(); got != "tag created concurrently: UNIQUE constraint failed: tags.key" {
		t.Errorf("Error() = %q", got)
	}
}

func TestErrorHTTPCode(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrAlreadyExists, http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{ErrInvalidInput, http.StatusBadRequest},
	}
	for _, tt := range tests {
		if got := tt.err.HTTPCode(); got != tt.want {
			t.Errorf("%v: code = %d, want %d", tt.err, got, tt.want)
		}
	}
}
