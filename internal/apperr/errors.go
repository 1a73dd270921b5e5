package apperr

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrMainScene = errors.New("main scene is not deletable")
)
