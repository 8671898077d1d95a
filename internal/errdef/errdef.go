package errdef

import (
	"errors"
	"fmt"
)

// NewValidation creates an error for a request missing required fields.
func NewValidation(format string, a ...any) error {
	return validation{fmt.Errorf(format, a...)}
}

type validation struct{ error }

func IsValidation(err error) bool {
	var e validation
	return errors.As(err, &e)
}

// NewNotReady creates an error for an operation attempted before the
// store has a usable backend.
func NewNotReady(format string, a ...any) error {
	return notReady{fmt.Errorf(format, a...)}
}

type notReady struct{ error }

func IsNotReady(err error) bool {
	var e notReady
	return errors.As(err, &e)
}

// NewMalformedResponse creates an error for a sync endpoint answering
// with the wrong content type or an explicit error payload.
func NewMalformedResponse(format string, a ...any) error {
	return malformedResponse{fmt.Errorf(format, a...)}
}

type malformedResponse struct{ error }

func IsMalformedResponse(err error) bool {
	var e malformedResponse
	return errors.As(err, &e)
}

// NewBadCredential creates an error for a rejected remote credential.
func NewBadCredential(format string, a ...any) error {
	return badCredential{fmt.Errorf(format, a...)}
}

type badCredential struct{ error }

func IsBadCredential(err error) bool {
	var e badCredential
	return errors.As(err, &e)
}

// NewCapability creates an error for a remote feature that is not
// enabled on the service side (identity provider missing, anonymous
// sign-in disabled).
func NewCapability(format string, a ...any) error {
	return capability{fmt.Errorf(format, a...)}
}

type capability struct{ error }

func IsCapability(err error) bool {
	var e capability
	return errors.As(err, &e)
}

// NewConnectivity creates an error for a network or otherwise
// unclassified remote failure.
func NewConnectivity(format string, a ...any) error {
	return connectivity{fmt.Errorf(format, a...)}
}

type connectivity struct{ error }

func IsConnectivity(err error) bool {
	var e connectivity
	return errors.As(err, &e)
}

func NewBusy(format string, a ...any) error {
	return busy{fmt.Errorf(format, a...)}
}

type busy struct{ error }

func IsBusy(err error) bool {
	var e busy
	return errors.As(err, &e)
}

func NewNotFound(format string, a ...any) error {
	return notFound{fmt.Errorf(format, a...)}
}

type notFound struct{ error }

func IsNotFound(err error) bool {
	var e notFound
	return errors.As(err, &e)
}
