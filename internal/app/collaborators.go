package app

import (
	"context"
	"fmt"

	"vehicle-checkpoint-backend/internal/config"
	"vehicle-checkpoint-backend/internal/estimator"
	"vehicle-checkpoint-backend/internal/events"
	"vehicle-checkpoint-backend/internal/logger"
	"vehicle-checkpoint-backend/internal/obs"
	"vehicle-checkpoint-backend/internal/service"
)

// NewPublisher connects to RabbitMQ when a URL is configured.
func NewPublisher(cfg config.RabbitMQConfig) (events.Publisher, error) {
	if cfg.URL == "" {
		logger.Info("Event publishing disabled")
		return events.NopPublisher{}, nil
	}
	p, err := events.NewAMQPPublisher(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	logger.Info("Publishing events", "exchange", cfg.Exchange)
	return p, nil
}

// NewEmailService sends through SendGrid when an API key is configured.
func NewEmailService(cfg config.SendGridConfig) service.EmailService {
	if cfg.APIKey == "" {
		logger.Info("Email disabled")
		return service.NewNopEmailService()
	}
	return service.NewSendGridEmailService(cfg.APIKey, cfg.FromEmail, cfg.FromName, cfg.OpsEmail)
}

// NewEstimator builds the dashboard reader, bounded by the configured timeout.
func NewEstimator(ctx context.Context, cfg config.EstimatorConfig) (estimator.ConditionEstimator, error) {
	var est estimator.ConditionEstimator
	switch cfg.Type {
	case "vision":
		v, err := estimator.NewVisionEstimator(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		est = v
	default:
		logger.Info("Dashboard estimation disabled, readings are entered by hand")
		est = estimator.Disabled()
	}
	return estimator.WithTimeout(est, cfg.Timeout), nil
}

// TracingConfig maps the config section onto the tracer settings.
func TracingConfig(cfg config.TracingConfig) obs.Config {
	return obs.Config{
		Enabled:     cfg.Enabled,
		Endpoint:    cfg.Endpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		SampleRatio: cfg.SampleRatio,
	}
}

// NewSettlementService wires settlement over the store with the configured defaults.
func NewSettlementService(cfg *config.Config, store *Store, pub events.Publisher, email service.EmailService) service.SettlementService {
	return service.NewSettlementService(
		store.BookingRepository,
		store.CheckRecordRepository,
		store.FineRepository,
		store.SettlementRepository,
		pub,
		email,
		service.SettlementOptions{
			MaxPlausibleKm:     cfg.Settlement.MaxPlausibleKm,
			DefaultFuelPricing: cfg.Settlement.DefaultFuelPricing(),
		},
	)
}
