package rabbitmq

import (
	"context"
	"log/slog"

	"github.com/GoArmGo/GeoPhoto/internal/core/ports"
	"github.com/GoArmGo/GeoPhoto/internal/messaging/payloads"
)

// DropPublisher используется без RABBITMQ_URL: задание только пишется в лог.
type DropPublisher struct {
	logger *slog.Logger
}

var _ ports.CleanupPublisher = (*DropPublisher)(nil)

func NewDropPublisher(logger *slog.Logger) *DropPublisher {
	return &DropPublisher{logger: logger}
}

func (p *DropPublisher) PublishCleanupJob(_ context.Context, payload payloads.CleanupPayload) error {
	p.logger.Warn("cleanup queue not configured, orphan left in place",
		"kind", payload.Kind,
		"key", payload.Key,
		"reason", payload.Reason,
	)
	return nil
}
