// Package sentinel holds infrastructure-fact errors. Stores return these
// (optionally wrapped) and services translate them into domain errors, so
// the mapping from "no such row" to an HTTP status lives in exactly one
// place per feature.
package sentinel

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
