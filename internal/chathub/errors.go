package chathub

import (
	"errors"
	"fmt"
)

var (
	ErrProfileRequired     = errors.New("anonymous profile required")
	ErrAlreadyWaiting      = errors.New("already waiting for a match")
	ErrAlreadyQueued       = errors.New("already queued for group matching")
	ErrAlreadyInActiveRoom = errors.New("already in an active room")
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomInactive        = errors.New("room is no longer active")
	ErrNotAParticipant     = errors.New("not a participant of this room")
	ErrValidation          = errors.New("validation failed")
	ErrPersistence         = errors.New("persistence failure")
)

// ActiveRoomError is returned by StartMatching when the user still has an
// active direct room, so the caller can resume it instead of re-matching.
type ActiveRoomError struct {
	RoomID          string
	PartnerNickname string
}

func (e *ActiveRoomError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAlreadyInActiveRoom, e.RoomID)
}

func (e *ActiveRoomError) Is(target error) bool {
	return target == ErrAlreadyInActiveRoom
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// ValidationError names the rejected input. Key is a localization catalog key
// for the message shown to the user.
type ValidationError struct {
	Key    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationErr(key, reason string) error {
	return &ValidationError{Key: key, Reason: reason}
}
