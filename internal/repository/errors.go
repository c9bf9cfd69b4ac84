// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to perform an operation on a resource owned by
// someone else, while ErrEscrowState signals that an escrow
// transition was requested from a state that does not permit it.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an insert or update cannot be
// performed because of conflicting state, such as carting the
// same listing twice. Handlers should translate this into an
// HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrListingUnavailable is returned when an order targets a listing
// that is not in the active state, including the case where another
// buyer purchased it first. Handlers translate this into HTTP 409.
var ErrListingUnavailable = errors.New("listing unavailable")

// ErrOwnListing is returned when a user attempts to buy or cart
// their own listing.
var ErrOwnListing = errors.New("cannot purchase own listing")

// ErrEscrowState is returned when an escrow transition is requested
// from a state that does not allow it, e.g. releasing funds on an
// order that is already refunded. Handlers translate this into
// HTTP 409.
var ErrEscrowState = errors.New("invalid escrow state")
