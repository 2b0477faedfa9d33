package service

import "github.com/pkg/errors"

var (
	ErrSurveyNotFound     = errors.New("survey not found")
	ErrResponseNotFound   = errors.New("response not found")
	ErrStudentNotFound    = errors.New("student not found")
	ErrNotDeployed        = errors.New("survey is not deployed to Google Forms")
	ErrForbidden          = errors.New("resource belongs to another teacher")
	ErrDuplicateStudent   = errors.New("student number already registered in class")
	ErrNotAnalyzed        = errors.New("response has not been analyzed")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)
