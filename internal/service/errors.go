package service

import "errors"

// Sentinel errors returned by the grading services. Handlers map them to
// HTTP status codes with errors.Is.
var (
	// ErrValidation marks malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a missing project, deliverable, assignment or evaluation.
	ErrNotFound = errors.New("not found")

	// ErrNotOwner is returned when a caller acts on a project they did not create.
	ErrNotOwner = errors.New("caller is not the project owner")

	// ErrNotEvaluator is returned when a caller submits an evaluation for an
	// assignment that belongs to someone else.
	ErrNotEvaluator = errors.New("caller is not the assigned evaluator")

	// ErrInvalidState marks a lifecycle transition from the wrong status.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrDeadlinePassed marks a mutation attempted after the due date.
	ErrDeadlinePassed = errors.New("deadline has passed")

	// ErrJuryAlreadySelected is returned on a second jury selection attempt.
	ErrJuryAlreadySelected = errors.New("jury already selected")

	// ErrInsufficientEvaluators is returned when the eligible pool is smaller
	// than the requested jury size.
	ErrInsufficientEvaluators = errors.New("not enough eligible evaluators")

	// ErrGradingClosed is returned when an evaluation is submitted for a
	// deliverable that is not open for grading.
	ErrGradingClosed = errors.New("grading is closed")
)
