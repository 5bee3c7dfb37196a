// Package sink writes rendered conversations to their output formats.
package sink

import (
	"context"
	"errors"

	"signal2html/pkg/render"
)

// Sink receives every exported conversation. Implementations must be safe
// for concurrent use.
type Sink interface {
	WriteConversation(ctx context.Context, conv *render.Conversation) error
	Close() error
}

// Multi fans a conversation out to several sinks in order.
type Multi []Sink

func (m Multi) WriteConversation(ctx context.Context, conv *render.Conversation) error {
	for _, s := range m {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.WriteConversation(ctx, conv); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
