package derrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestToHTTPStatus(t *testing.T) {
	for _, test := range []struct {
		in   error
		want int
	}{
		{nil, http.StatusOK},
		{NotFound, http.StatusNotFound},
		{fmt.Errorf("revision: %w", NotFound), http.StatusNotFound},
		{InvalidArgument, http.StatusBadRequest},
		{MethodNotAllowed, http.StatusMethodNotAllowed},
		{NotImplemented, http.StatusNotImplemented},
		{MalformedMarkup, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	} {
		if got := ToHTTPStatus(test.in); got != test.want {
			t.Errorf("ToHTTPStatus(%v) = %d, want %d", test.in, got, test.want)
		}
	}
}

func TestFromHTTPStatus(t *testing.T) {
	if err := FromHTTPStatus(http.StatusOK, "ok"); err != nil {
		t.Errorf("FromHTTPStatus(200) = %v, want nil", err)
	}
	err := FromHTTPStatus(http.StatusNotFound, "origin %q", "https://example.org")
	if !errors.Is(err, NotFound) {
		t.Errorf("FromHTTPStatus(404) = %v, want NotFound", err)
	}
	if got := FromHTTPStatus(418, ""); got != Unknown {
		t.Errorf("FromHTTPStatus(418) = %v, want Unknown", got)
	}
}

func TestWrapAndAdd(t *testing.T) {
	f := func(wrap bool) (err error) {
		if wrap {
			defer Wrap(&err, "f(%d)", 1)
		} else {
			defer Add(&err, "f(%d)", 1)
		}
		return MalformedMarkup
	}
	wrapped := f(true)
	if got, want := wrapped.Error(), "f(1): malformed markup"; got != want {
		t.Errorf("Wrap: got %q, want %q", got, want)
	}
	if !errors.Is(wrapped, MalformedMarkup) {
		t.Error("Wrap: errors.Is(MalformedMarkup) = false")
	}
	if errors.Is(f(false), MalformedMarkup) {
		t.Error("Add: errors.Is(MalformedMarkup) = true, want false")
	}

	var nilErr error
	Wrap(&nilErr, "noop")
	if nilErr != nil {
		t.Errorf("Wrap(nil) = %v, want nil", nilErr)
	}
}
