package sentinel

import "errors"

// Sentinel errors for infrastructure facts. The registry and the assignment
// engine return these wrapped with context so transport layers can translate
// them with errors.Is without knowing the domain types:
// - ErrNotFound: experiment key or id was never declared
// - ErrInvalidInput: declaration or override input fails validation
// - ErrInvalidState: operation not allowed in the current request state
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidState = errors.New("invalid state")
)
