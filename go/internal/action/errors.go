package action

import "errors"

var (
	// ErrNoTarget is returned when submitting without a selected target
	ErrNoTarget = errors.New("no target selected")

	// ErrStaleTarget is returned when the selected target is no longer an alive, selectable player
	ErrStaleTarget = errors.New("target is no longer available")

	// ErrNotEligible is returned when the player has no action this phase
	ErrNotEligible = errors.New("no action available")

	// ErrCompleted is returned after the phase's action has already been submitted
	ErrCompleted = errors.New("action already submitted this phase")

	// ErrInFlight is returned while a previous submission is outstanding
	ErrInFlight = errors.New("submission in progress")

	ErrMessageEmpty   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message is too long")

	// ErrCannotStart is returned when the lobby cannot be started yet
	ErrCannotStart = errors.New("game cannot be started")

	// ErrNotJoined is returned for player operations without a player id
	ErrNotJoined = errors.New("not joined as a player")
)
