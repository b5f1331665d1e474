package approval

import "errors"

// Typed errors returned by the registry. Callers detect conditions via
// errors.Is: an already resolved approval (ErrInvalidTransition) is benign,
// a role mismatch (ErrForbidden) is an authorization failure, an unknown id
// (ErrNotFound) is likely a client bug.
var (
	ErrNotFound          = errors.New("approval: not found")
	ErrInvalidTransition = errors.New("approval: invalid transition")
	ErrForbidden         = errors.New("approval: forbidden")
	ErrInvalidTimeout    = errors.New("approval: invalid timeout")
)
