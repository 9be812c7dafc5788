package repository

import "errors"

// Sentinel errors shared across repositories. Handlers translate these
// into HTTP statuses: conflicts map to 409, lookups to 404.
var (
	// ErrLotNotFound is returned when a lot lookup yields no rows.
	ErrLotNotFound = errors.New("lot not found")
	// ErrSpotNotFound is returned when a spot lookup yields no rows.
	ErrSpotNotFound = errors.New("spot not found")
	// ErrDuplicateLotName is returned when a lot name is already taken.
	ErrDuplicateLotName = errors.New("lot name already exists")
	// ErrAlreadyBooked is returned when a user who already holds an open
	// booking tries to book another spot.
	ErrAlreadyBooked = errors.New("user already has an active booking")
	// ErrLotFull is returned when no available spot exists in the lot.
	ErrLotFull = errors.New("no available spots in lot")
	// ErrNoActiveBooking is returned by release and active-booking lookups
	// when the user has no open booking.
	ErrNoActiveBooking = errors.New("no active booking")
	// ErrInsufficientRemovableSpots is returned when a capacity shrink
	// cannot find enough available, history-free spots to delete.
	ErrInsufficientRemovableSpots = errors.New("not enough removable spots")
	// ErrLotOccupied blocks lot deletion while any spot is occupied.
	ErrLotOccupied = errors.New("lot has occupied spots")
)
