package domain

import "errors"

var (
	// ErrIncompleteQuestion is returned when a question without score or duration is opened.
	ErrIncompleteQuestion = errors.New("question is missing score or duration")
	// ErrGroupNotFound is returned when no live-question state was ever written for a group.
	ErrGroupNotFound = errors.New("group state not found")
	// ErrNoActiveQuestion is returned when a submission arrives while nothing is open.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrDuplicateResponse is returned on a second submission for the same broadcast.
	ErrDuplicateResponse = errors.New("response already submitted")
	// ErrMisconfiguredQuestion is returned when a question has no correct option to score against.
	ErrMisconfiguredQuestion = errors.New("question has no correct option")
	// ErrStoreConflict is returned when a conditional write lost a race.
	ErrStoreConflict = errors.New("store conflict")

	// ErrQuestionNotFound indicates the question could not be loaded for the group.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrQuestionInactive indicates an inactive question was opened.
	ErrQuestionInactive = errors.New("question is inactive")
	// ErrInvalidTransition indicates a lifecycle transition the state machine forbids.
	ErrInvalidTransition = errors.New("invalid question state transition")
	// ErrParticipantNotFound is returned when a user acts in a group they are not a member of.
	ErrParticipantNotFound = errors.New("participant not found in group")
	// ErrParticipantInactive is returned when an inactive member submits an answer.
	ErrParticipantInactive = errors.New("participant is inactive")
	// ErrInvalidInput flags malformed arguments.
	ErrInvalidInput = errors.New("invalid input")
)
