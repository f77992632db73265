package util

import "errors"

var (
	ErrNotFound        = errors.New("resource not found")
	ErrConflict        = errors.New("resource was changed by another request")
	ErrInvalidToken    = errors.New("invalid inspection link")
	ErrLinkExpired     = errors.New("inspection link has expired")
	ErrAlreadyAnswered = errors.New("inspection has already been answered")
	ErrNotPending      = errors.New("only pending inspections can be deleted")
	ErrInvalidFile     = errors.New("invalid file")
	ErrFileTooLarge    = errors.New("file is too large")
	ErrInvalidInput    = errors.New("invalid input")
)
