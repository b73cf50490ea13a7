package build

import "errors"

// Sentinel errors classifying build failures. They are wrapped in
// classified errors with context at the call site.
var (
	ErrIllegalTransition = errors.New("illegal build state transition")
	ErrStrictCollisions  = errors.New("content collisions in strict mode")
	ErrStrictContent     = errors.New("content problems in strict mode")
	ErrStrictRender      = errors.New("page render failures in strict mode")
)
