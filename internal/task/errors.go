package task

// Error taxonomy returned by lifecycle operations. The HTTP layer maps these
// to status codes with errors.As; everything else is an internal fault.

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "task: invalid input: " + e.Reason }

// ForbiddenError reports a caller that is not the creator or assignee the
// operation requires.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return "task: forbidden: " + e.Reason }

// NotFoundError reports an unknown task ID.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return "task: not found: " + e.ID }

// ConflictError reports a well-formed request that violates a business rule,
// with a human-readable reason.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return "task: conflict: " + e.Reason }
