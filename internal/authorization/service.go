package authorization

import (
	"context"
	"errors"
)

// Service answers capability questions for a caller role.
type Service interface {
	Can(ctx context.Context, role string, object string, action string) (bool, error)
	Authorize(ctx context.Context, role string, object string, action string) error
}

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)
