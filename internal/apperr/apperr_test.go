package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("get chart: %w", ErrNotFound), http.StatusNotFound},
		{ErrKeyMismatch, http.StatusBadRequest},
		{ErrTooLarge, http.StatusRequestEntityTooLarge},
		{fmt.Errorf("%w: data is required", ErrValidation), http.StatusUnprocessableEntity},
		{fmt.Errorf("decode: %w", ErrCorruptData), http.StatusInternalServerError},
		{fmt.Errorf("open: %w", ErrIO), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := Status(tc.err); got != tc.want {
			t.Fatalf("Status(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestKeyMismatchIsValidation(t *testing.T) {
	if !errors.Is(ErrKeyMismatch, ErrValidation) {
		t.Fatal("expected ErrKeyMismatch to wrap ErrValidation")
	}
	if Detail(ErrKeyMismatch) != "basketId mismatch" {
		t.Fatalf("unexpected detail: %q", Detail(ErrKeyMismatch))
	}
}

func TestDetailHidesInternals(t *testing.T) {
	err := fmt.Errorf("%w: disk I/O error at /var/lib/chart_cache.db", ErrIO)
	if got := Detail(err); got != "internal server error" {
		t.Fatalf("expected generic detail, got %q", got)
	}
	if got := Detail(fmt.Errorf("scan: %w", ErrCorruptData)); got != "Corrupted payload" {
		t.Fatalf("expected corrupted payload detail, got %q", got)
	}
}
