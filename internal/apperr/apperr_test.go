package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, StatusOK},
		{InvalidProperty("bad"), StatusInvalid},
		{InvalidDate("bad date"), StatusInvalid},
		{ErrVehicleUnavailable, StatusInvalid},
		{ErrNotAuthorized, StatusUnauthorized},
		{ErrBranchNotFound, StatusNotFound},
		{ErrUnavailable, StatusUnavailable},
		{Communication(errors.New("conn reset")), StatusInternal},
		{Server(errors.New("boom")), StatusInternal},
		{errors.New("untyped"), StatusInternal},
	}
	for _, c := range cases {
		if got := Status(c.err); got != c.want {
			t.Fatalf("Status(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestMessageHidesInternals(t *testing.T) {
	err := Communication(errors.New("dial tcp 10.0.0.7:50051: connection refused"))
	if msg := Message(err); msg != "Branch error" {
		t.Fatalf("communication message leaked detail: %q", msg)
	}
	if msg := Message(InvalidDate("Booking cannot exceed 7 days")); msg != "Booking cannot exceed 7 days" {
		t.Fatalf("validation message lost: %q", msg)
	}
}

func TestErrorsIsThroughWrap(t *testing.T) {
	wrapped := fmt.Errorf("handling op: %w", ErrVehicleUnavailable)
	if Status(wrapped) != StatusInvalid {
		t.Fatalf("wrapping must preserve classification")
	}
	if !errors.Is(wrapped, ErrVehicleUnavailable) {
		t.Fatalf("errors.Is must see through wrap")
	}
}

func TestFromStatus(t *testing.T) {
	if err := FromStatus(StatusOK, ""); err != nil {
		t.Fatalf("200 must map to nil, got %v", err)
	}
	err := FromStatus(StatusInvalid, "Vehicle unavailable")
	if Status(err) != StatusInvalid || Message(err) != "Vehicle unavailable" {
		t.Fatalf("400 round trip broken: %v", err)
	}
	err = FromStatus(StatusInternal, "dial refused")
	if Message(err) == "dial refused" {
		t.Fatalf("500 must stay opaque")
	}
}
