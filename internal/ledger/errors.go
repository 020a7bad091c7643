package ledger

import "errors"

var (
	// ErrInvalidFill rejects fills with a non-positive quantity or price.
	// Nothing is mutated when it is returned.
	ErrInvalidFill = errors.New("invalid fill")

	// ErrUnknownInstrument marks a fill or query for an instrument that was
	// never registered with the ledger.
	ErrUnknownInstrument = errors.New("unknown instrument")

	// ErrOpenPosition blocks resetting or switching an instrument while its
	// position is non-flat. Close first.
	ErrOpenPosition = errors.New("position still open")
)
