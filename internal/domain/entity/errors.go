package entity

import "errors"

var (
	// ErrUpstream marks a failed or malformed response from the annotation service on a call the run
	// cannot proceed without.
	ErrUpstream = errors.New("upstream error")

	// ErrTransientFetch marks an optional fetch (image, localization) that failed. Callers degrade.
	ErrTransientFetch = errors.New("transient fetch failure")

	// ErrConfiguration marks missing or invalid configuration, including classes without a color.
	ErrConfiguration = errors.New("configuration error")
)
