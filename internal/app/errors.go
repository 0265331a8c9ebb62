package service

import "errors"

// Sentinel errors for callers of the service layer.
var (
	// ErrNotStarted indicates an operation on a service before Start.
	ErrNotStarted = errors.New("service not started")

	// ErrFeatureDisabled indicates an operation gated off by configuration.
	ErrFeatureDisabled = errors.New("feature disabled")
)
