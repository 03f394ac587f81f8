package server

import (
	"context"

	"github.com/SanchitCoder/PortIQ/internal/auth"
	"github.com/SanchitCoder/PortIQ/internal/config"
	"github.com/SanchitCoder/PortIQ/internal/email"
	"github.com/SanchitCoder/PortIQ/internal/events"
	"github.com/SanchitCoder/PortIQ/internal/logger"
)

// NewVerifier prefers the JWKS endpoint when configured and falls back to
// the shared HS256 secret.
func NewVerifier(cfg *config.Config) (auth.TokenVerifier, error) {
	if cfg.JWKSURL != "" {
		return auth.NewJWKSVerifier(cfg.JWKSURL, cfg.JWTAudience)
	}
	return auth.NewVerifier(cfg.JWTSecret, cfg.JWTAudience)
}

// NewPublisher returns an SQS publisher when a queue is configured.
func NewPublisher(ctx context.Context, cfg *config.Config) events.Publisher {
	if cfg.QueueURL == "" {
		return events.NopPublisher{}
	}
	p, err := events.NewSQSPublisher(ctx, cfg.QueueURL)
	if err != nil {
		logger.Warn("event publishing disabled", "error", err)
		return events.NopPublisher{}
	}
	return p
}

func NewEmailService(cfg *config.Config) *email.Service {
	return email.New(email.Config{
		From:      cfg.EmailFrom,
		FromName:  cfg.EmailFromName,
		SMTPHost:  cfg.SMTPHost,
		SMTPPort:  cfg.SMTPPort,
		SMTPUser:  cfg.SMTPUser,
		SMTPPass:  cfg.SMTPPass,
		RedisAddr: cfg.RedisAddr,
	})
}
