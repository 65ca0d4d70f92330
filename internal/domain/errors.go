package domain

import "errors"

var (
	// ErrAuthentication is returned when a webhook signature is missing or
	// does not match. It deliberately carries no detail.
	ErrAuthentication = errors.New("invalid webhook signature")

	// ErrAccessDenied is returned when a sender is not on the allow-list.
	ErrAccessDenied = errors.New("sender not permitted")

	// ErrEmptyResult marks a collaborator call that succeeded but produced
	// nothing usable.
	ErrEmptyResult = errors.New("empty result")

	// ErrUnavailable marks a collaborator that is not configured.
	ErrUnavailable = errors.New("capability not configured")
)
