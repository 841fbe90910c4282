package events

import (
	"context"
	"errors"

	"github.com/alejandrodnm/blinkbet/internal/domain"
	"github.com/alejandrodnm/blinkbet/internal/ports"
)

// Multi fans an event out to every publisher. All of them are tried; the
// joined error reports the ones that failed.
type Multi []ports.EventPublisher

func (m Multi) Publish(ctx context.Context, ev domain.BetEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
