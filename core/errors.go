package core

import "errors"

// Error taxonomy shared by every layer. Layers wrap these with operation
// context via fmt.Errorf and callers classify failures with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrQuery           = errors.New("query failed")
	ErrMaterialization = errors.New("materialization failed")
	ErrInternal        = errors.New("internal failure")
)
