package audit

import (
	"context"

	id "civicwatch/pkg/domain"
	dErrors "civicwatch/pkg/domain-errors"
	"civicwatch/pkg/requestcontext"
)

// Publisher captures structured trail entries. It is append-only and uses
// the store for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit fills request-derived fields and appends. A failed append is a hard
// error; callers run Emit inside the decision transaction so the trail and
// the decision succeed or fail together.
func (p *Publisher) Emit(ctx context.Context, e Entry) error {
	if e.ID.IsNil() {
		e.ID = id.NewAuditEntryID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = requestcontext.Now(ctx)
	}
	if e.ClientIP == "" {
		e.ClientIP = requestcontext.ClientIP(ctx)
	}
	if e.ClientInfo == "" {
		e.ClientInfo = requestcontext.ClientInfo(ctx)
	}
	if err := p.store.Append(ctx, e); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit entry")
	}
	return nil
}

// ListByTarget returns the trail for one record, oldest first.
func (p *Publisher) ListByTarget(ctx context.Context, targetType TargetType, targetID string) ([]Entry, error) {
	entries, err := p.store.ListByTarget(ctx, targetType, targetID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}

// ListByModerator returns everything one moderator did, oldest first.
func (p *Publisher) ListByModerator(ctx context.Context, moderatorID id.UserID) ([]Entry, error) {
	entries, err := p.store.ListByModerator(ctx, moderatorID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}
