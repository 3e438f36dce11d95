// Package errors annotates errors with the file and line they were raised from.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
)

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown:0"
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// WrapE wraps originalErr under a static sentinel so both match errors.Is.
func WrapE(staticErr, originalErr error) error {
	return fmt.Errorf("%s: %w: %w", caller(1), staticErr, originalErr)
}

func Wrap(err error, msg string) error {
	return fmt.Errorf("%s: %w: %s", caller(1), err, msg)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", caller(1), err, fmt.Sprintf(format, args...))
}

// Wrapef wraps originalErr under staticErr with a formatted message.
func Wrapef(staticErr, originalErr error, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s: %w", caller(1), staticErr, fmt.Sprintf(format, args...), originalErr)
}

func New(text string) error {
	return fmt.Errorf("%s: %s", caller(1), text)
}

func Newf(format string, args ...any) error {
	return fmt.Errorf("%s: %s", caller(1), fmt.Sprintf(format, args...))
}

// Sentinel returns a plain error without location, for package level sentinels compared with Is.
func Sentinel(text string) error {
	return stderrors.New(text)
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}

func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
