package rest

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrBodyTooLarge = errors.New("request body too large")
)

func missingField(name string) error {
	return fmt.Errorf("%w: %s is required", ErrValidation, name)
}

func invalidField(name, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrValidation, name, reason)
}
