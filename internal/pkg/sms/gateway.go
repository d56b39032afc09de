// Package sms sends text messages through a prioritized provider chain.
package sms

import (
	"context"

	"github.com/oraharon2020/tavati-sub001/pkg/logger"

	"go.uber.org/zap"
)

// Provider is one SMS integration. Configured reports whether credentials
// are present; Send delivers a single message.
type Provider interface {
	Name() string
	Configured() bool
	Send(ctx context.Context, phone, message string) error
}

// Gateway walks the provider list in order and uses the first configured
// one. A configured provider that fails fails the send outright: falling
// through on transient errors would mask a broken integration.
type Gateway struct {
	providers []Provider
}

func NewGateway(providers ...Provider) *Gateway {
	return &Gateway{providers: providers}
}

// Send delivers message to phone via the first configured provider. With no
// provider configured the message is logged and dropped, which keeps dev and
// test environments working without credentials.
func (g *Gateway) Send(ctx context.Context, phone, message string) error {
	for _, p := range g.providers {
		if !p.Configured() {
			continue
		}
		if err := p.Send(ctx, phone, message); err != nil {
			logger.Error("sms send failed",
				zap.String("provider", p.Name()),
				zap.String("phone", phone),
				zap.Error(err),
			)
			return err
		}
		return nil
	}

	logger.Info("sms: no provider configured, message dropped",
		zap.String("phone", phone),
		zap.String("message", message),
	)
	return nil
}
