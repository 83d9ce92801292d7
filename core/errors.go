package core

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientContent = errors.New("insufficient content")
	ErrInvalidRoundIndex   = errors.New("invalid round index")
	ErrPersistence         = errors.New("persistence failure")
	ErrMissingGuess        = errors.New("missing guess")
	ErrInvalidState        = errors.New("invalid session state")
	ErrHintUnavailable     = errors.New("no hints remaining")
	ErrHintAlreadyUsed     = errors.New("hint already revealed")
	ErrUnknownHint         = errors.New("unknown hint type")
	ErrSessionNotFound     = errors.New("session not found")
	ErrNotFound            = errors.New("not found")
)

// InsufficientContentError is returned when the catalog cannot supply a full
// session worth of images.
type InsufficientContentError struct {
	Needed    int
	Available int
}

func (e *InsufficientContentError) Error() string {
	return fmt.Sprintf("need %d images, only %d available", e.Needed, e.Available)
}

func (e *InsufficientContentError) Is(target error) bool { return target == ErrInsufficientContent }

// InvalidRoundIndexError reports a round reference outside the session.
type InvalidRoundIndexError struct {
	Index  int
	Rounds int
}

func (e *InvalidRoundIndexError) Error() string {
	return fmt.Sprintf("round index %d out of range [0,%d)", e.Index, e.Rounds)
}

func (e *InvalidRoundIndexError) Is(target error) bool { return target == ErrInvalidRoundIndex }

// PersistenceError wraps a collaborator read or write failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// StateError reports an operation attempted in the wrong lifecycle state.
type StateError struct {
	Op    string
	State string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s not allowed in state %s", e.Op, e.State)
}

func (e *StateError) Is(target error) bool { return target == ErrInvalidState }
