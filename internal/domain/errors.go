package domain

import "errors"

var (
	// ErrInvalidName is returned when a join name is empty after trimming.
	ErrInvalidName = errors.New("invalid player name")
	// ErrUnknownPlayer is returned for player IDs that were never issued (or were wiped by reset).
	ErrUnknownPlayer = errors.New("unknown player")
	// ErrInvalidOption is returned for an option index outside 0..3.
	ErrInvalidOption = errors.New("invalid option index")
	// ErrDuplicateAnswer is returned when a player already answered the current question.
	ErrDuplicateAnswer = errors.New("answer already submitted")
	// ErrNotAnswering is returned for submissions outside the answering phase.
	ErrNotAnswering = errors.New("not accepting answers")
	// ErrInvalidTransition is returned for a phase-transition call off the allowed edges.
	ErrInvalidTransition = errors.New("invalid phase transition")
	// ErrTooFewPlayers is returned by start when the minimum-player policy is enabled and unmet.
	ErrTooFewPlayers = errors.New("too few players")
	// ErrWrongPhase is returned by read operations that are meaningless in the current phase.
	ErrWrongPhase = errors.New("wrong phase")
	// ErrInvalidBank indicates malformed question configuration.
	ErrInvalidBank = errors.New("invalid question bank")
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
)
