// Package audit records moderator actions in an append-only trail. Entries
// are written inside the same transactional boundary as the decision they
// describe, so a decision without its trail entry cannot commit.
package audit

import (
	"context"
	"time"

	id "civicwatch/pkg/domain"
)

// Action identifies what the moderator did.
type Action string

const (
	ActionVerifyIncident      Action = "verify_incident"
	ActionRejectIncident      Action = "reject_incident"
	ActionTakeDownIncident    Action = "take_down_incident"
	ActionResolveReportReview Action = "resolve_report_review"
	ActionStationDeactivated  Action = "station_deactivated"
	ActionStationReactivated  Action = "station_reactivated"
)

// TargetType names the kind of record an entry refers to.
type TargetType string

const (
	TargetReport  TargetType = "report"
	TargetReview  TargetType = "report_review"
	TargetStation TargetType = "station"
)

// Entry is one appended trail record. ClientIP and ClientInfo describe the
// request that carried the action, captured from request metadata.
type Entry struct {
	ID          id.AuditEntryID
	ModeratorID id.UserID
	Action      Action
	TargetType  TargetType
	TargetID    string
	Reason      string
	ClientIP    string
	ClientInfo  string
	Timestamp   time.Time
}

// Store persists trail entries. Append must be atomic with the surrounding
// moderation transaction when one is carried in the context.
type Store interface {
	Append(ctx context.Context, e Entry) error
	ListByTarget(ctx context.Context, targetType TargetType, targetID string) ([]Entry, error)
	ListByModerator(ctx context.Context, moderatorID id.UserID) ([]Entry, error)
}
