package resumes

import "errors"

var (
	ErrNotFound         = errors.New("resume not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvalidInput     = errors.New("invalid input")
)
