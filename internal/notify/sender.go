// Package notify delivers best-effort notifications to publishers and
// station staff. Delivery is fire-and-forget; a lost notification never
// fails the operation that produced it.
package notify

import (
	"context"
	"log/slog"
)

// TargetKind says who a notification is addressed to.
type TargetKind string

const (
	TargetPublisher    TargetKind = "publisher"
	TargetStationStaff TargetKind = "station_staff"
)

// Target is one recipient address.
type Target struct {
	Kind    TargetKind
	Address string
}

// Notification is one message, possibly fanned out to several targets.
type Notification struct {
	Targets []Target
	Title   string
	Body    string
	Data    map[string]string
}

// Sender delivers a notification to a single target. Production transports
// (push, email gateways) are external collaborators behind this interface.
type Sender interface {
	Send(ctx context.Context, target Target, n Notification) error
}

// LogSender writes notifications to the structured log. Used in dev and as
// the default when no transport is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, target Target, n Notification) error {
	s.logger.InfoContext(ctx, "notification delivered",
		"target_kind", string(target.Kind),
		"target_address", target.Address,
		"title", n.Title,
	)
	return nil
}

// NoopSender drops everything. Used in tests that only assert enqueueing.
type NoopSender struct{}

func (NoopSender) Send(context.Context, Target, Notification) error { return nil }
