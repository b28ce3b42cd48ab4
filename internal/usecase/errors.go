package usecase

import (
	"errors"
	"fmt"
)

var (
	// ErrPhotoNotFound — записи нет или она принадлежит другому пользователю
	ErrPhotoNotFound = errors.New("photo not found")
	// ErrBlobNotFound — в blob storage нет файла по ключу
	ErrBlobNotFound = errors.New("image not found")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrEmailTaken         = errors.New("email is already in use")
	ErrUserNotFound       = errors.New("user not found")
)

// ValidationError — запрос отклонён до каких-либо записей
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func newValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StorageError — сбой blob storage, операция прервана
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
