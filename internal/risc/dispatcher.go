package risc

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"riscguard/internal/account"
	"riscguard/internal/audit"
	"riscguard/internal/risc/metrics"
	"riscguard/pkg/platform/sentinel"
	"riscguard/pkg/requestcontext"
)

// Auditor records processed events to the audit trail.
type Auditor interface {
	Emit(event audit.Event)
}

// Dispatcher walks the events of one verified token and routes each to its
// handler. Handlers are independent: one failing event never prevents its
// siblings from being processed, and each repository call commits on its
// own.
type Dispatcher struct {
	accounts account.Repository
	auditor  Auditor
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewDispatcher constructs a dispatcher over the account repository.
func NewDispatcher(accounts account.Repository, auditor Auditor, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		accounts: accounts,
		auditor:  auditor,
		logger:   logger,
		metrics:  m,
	}
}

// Process handles every event in the verified payload and returns one
// outcome per event. Events are processed sorted by event-type URI so
// multi-event outcomes are reproducible; the protocol itself specifies no
// order.
func (d *Dispatcher) Process(ctx context.Context, payload *SecurityEventToken) []EventOutcome {
	subjectID := payload.SubjectID()

	eventTypes := make([]string, 0, len(payload.Events))
	for eventType := range payload.Events {
		eventTypes = append(eventTypes, eventType)
	}
	sort.Strings(eventTypes)

	d.logger.InfoContext(ctx, "processing security events",
		"token_id", payload.ID,
		"event_types", eventTypes,
		"subject_id", subjectID,
	)

	outcomes := make([]EventOutcome, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		outcome := d.dispatch(ctx, eventType, payload.Events[eventType], subjectID)
		d.metrics.IncrementEventOutcome(outcome.Action)
		d.auditor.Emit(audit.Event{
			RequestID: requestcontext.RequestID(ctx),
			TokenID:   payload.ID,
			EventType: outcome.EventType,
			SubjectID: outcome.SubjectID,
			Action:    outcome.Action,
			Success:   outcome.Success,
			Error:     outcome.Error,
		})
		outcomes = append(outcomes, outcome)
	}

	return outcomes
}

func (d *Dispatcher) dispatch(ctx context.Context, eventType string, data EventData, subjectID string) EventOutcome {
	switch eventType {
	case EventTypeTokensRevoked:
		return d.revoke(ctx, eventType, subjectID, ActionTokensRevoked)
	case EventTypeTokenRevoked:
		// A single-token revocation is handled like a full revocation: we
		// store one credential set per subject, so there is nothing finer
		// to match the token_identifier against.
		return d.revoke(ctx, eventType, subjectID, ActionTokenRevoked)
	case EventTypeSessionsRevoked:
		return d.revoke(ctx, eventType, subjectID, ActionSessionRevoked)
	case EventTypeCredentialChangeRequired:
		return d.revoke(ctx, eventType, subjectID, ActionTokensRevokedCredentialChange)
	case EventTypeAccountDisabled:
		return d.accountDisabled(ctx, subjectID, data)
	case EventTypeAccountEnabled:
		return d.accountEnabled(ctx, subjectID)
	case EventTypeAccountPurged:
		return d.accountPurged(ctx, subjectID)
	case EventTypeVerification:
		d.logger.InfoContext(ctx, "received verification event")
		return EventOutcome{Success: true, EventType: eventType, SubjectID: subjectID, Action: ActionVerificationAcknowledged}
	default:
		d.logger.WarnContext(ctx, "ignoring unknown event type", "event_type", eventType)
		return EventOutcome{Success: true, EventType: eventType, SubjectID: subjectID, Action: ActionIgnoredUnknownEvent}
	}
}

// revoke covers every event kind whose response is deleting the subject's
// stored credentials; only the reported action differs.
func (d *Dispatcher) revoke(ctx context.Context, eventType, subjectID, action string) EventOutcome {
	if subjectID == "" {
		d.logger.ErrorContext(ctx, "event missing subject id", "event_type", eventType)
		return EventOutcome{
			EventType: eventType,
			Action:    ActionFailedNoSubjectID,
			Error:     "missing subject id in event",
		}
	}

	result, err := d.accounts.RevokeTokensBySubject(ctx, subjectID)
	if err != nil {
		return d.repositoryFailure(ctx, eventType, subjectID, err)
	}

	d.logger.InfoContext(ctx, "revoked tokens for subject",
		"event_type", eventType,
		"subject_id", subjectID,
		"email", result.Email,
	)
	return EventOutcome{Success: true, EventType: eventType, SubjectID: subjectID, Action: action}
}

func (d *Dispatcher) accountDisabled(ctx context.Context, subjectID string, data EventData) EventOutcome {
	if subjectID == "" {
		d.logger.ErrorContext(ctx, "account-disabled event missing subject id")
		return EventOutcome{
			EventType: EventTypeAccountDisabled,
			Action:    ActionFailedNoSubjectID,
			Error:     "missing subject id in event",
		}
	}

	result, err := d.accounts.SuspendAccountBySubject(ctx, subjectID)
	if err != nil {
		return d.repositoryFailure(ctx, EventTypeAccountDisabled, subjectID, err)
	}

	d.logger.InfoContext(ctx, "suspended account for subject",
		"subject_id", subjectID,
		"email", result.Email,
		"reason", data.Reason,
	)
	return EventOutcome{Success: true, EventType: EventTypeAccountDisabled, SubjectID: subjectID, Action: ActionAccountSuspended}
}

// accountEnabled never auto-restores access. Re-enablement requires the
// user to re-authenticate through the normal flow, so this only logs.
func (d *Dispatcher) accountEnabled(ctx context.Context, subjectID string) EventOutcome {
	if subjectID == "" {
		d.logger.WarnContext(ctx, "account-enabled event missing subject id")
		return EventOutcome{Success: true, EventType: EventTypeAccountEnabled, Action: ActionLoggedNoAction}
	}
	d.logger.InfoContext(ctx, "account re-enabled upstream, user must re-authenticate", "subject_id", subjectID)
	return EventOutcome{Success: true, EventType: EventTypeAccountEnabled, SubjectID: subjectID, Action: ActionLoggedAccountEnabled}
}

// accountPurged is advisory: the account may simply never have existed
// locally, so an unknown subject is a successful no-op rather than a
// failure.
func (d *Dispatcher) accountPurged(ctx context.Context, subjectID string) EventOutcome {
	if subjectID == "" {
		d.logger.ErrorContext(ctx, "account-purged event missing subject id")
		return EventOutcome{
			EventType: EventTypeAccountPurged,
			Action:    ActionFailedNoSubjectID,
			Error:     "missing subject id in event",
		}
	}

	result, err := d.accounts.RevokeTokensBySubject(ctx, subjectID)
	if errors.Is(err, sentinel.ErrNotFound) {
		d.logger.InfoContext(ctx, "no local account for purged subject", "subject_id", subjectID)
		return EventOutcome{Success: true, EventType: EventTypeAccountPurged, SubjectID: subjectID, Action: ActionNoActionUserNotFound}
	}
	if err != nil {
		return d.repositoryFailure(ctx, EventTypeAccountPurged, subjectID, err)
	}

	d.logger.InfoContext(ctx, "revoked tokens for purged account",
		"subject_id", subjectID,
		"email", result.Email,
	)
	return EventOutcome{Success: true, EventType: EventTypeAccountPurged, SubjectID: subjectID, Action: ActionTokensRevokedAccountPurged}
}

func (d *Dispatcher) repositoryFailure(ctx context.Context, eventType, subjectID string, err error) EventOutcome {
	if errors.Is(err, sentinel.ErrNotFound) {
		d.logger.ErrorContext(ctx, "no local account for subject",
			"event_type", eventType,
			"subject_id", subjectID,
		)
		return EventOutcome{
			EventType: eventType,
			SubjectID: subjectID,
			Action:    ActionFailedUserNotFound,
			Error:     "user not found for subject id",
		}
	}

	d.logger.ErrorContext(ctx, "account repository call failed",
		"event_type", eventType,
		"subject_id", subjectID,
		"error", err,
	)
	return EventOutcome{
		EventType: eventType,
		SubjectID: subjectID,
		Action:    ActionFailedRepository,
		Error:     err.Error(),
	}
}
