package domain

import "errors"

var (
	// ErrSourceUnavailable reports that a remote catalog or policy
	// source could not be fetched or parsed.
	ErrSourceUnavailable = errors.New("source unavailable")

	ErrOutOfStock       = errors.New("out of stock")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrNotInCart        = errors.New("not in cart")
	ErrEmptyCart        = errors.New("empty cart")
	ErrMissingCustomer  = errors.New("missing customer")
	ErrNoRemito         = errors.New("no remito issued")
	ErrFinalizeInFlight = errors.New("finalize already in flight")
)
