package ports

import (
	"context"

	"github.com/alejandrodnm/blinkbet/internal/domain"
)

// EventPublisher announces committed bet transitions.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.BetEvent) error
}
