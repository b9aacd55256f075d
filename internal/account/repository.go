// Package account exposes the user-account store consumed by the event
// handlers. The pipeline only ever reaches accounts through Repository;
// persistence details stay behind it.
package account

import "context"

// Result reports a repository operation. Email is informational, for
// logging which local account was affected.
type Result struct {
	Success bool
	Email   string
}

// Repository is the outbound dependency the event handlers call. Both
// operations are idempotent: repeating them for the same subject is not an
// error. An unknown subject is reported as sentinel.ErrNotFound (wrapped),
// never invented.
type Repository interface {
	// RevokeTokensBySubject deletes all stored OAuth credentials for the
	// account linked to the provider subject id.
	RevokeTokensBySubject(ctx context.Context, subjectID string) (Result, error)

	// SuspendAccountBySubject suspends the account linked to the provider
	// subject id and revokes its stored credentials.
	SuspendAccountBySubject(ctx context.Context, subjectID string) (Result, error)
}
