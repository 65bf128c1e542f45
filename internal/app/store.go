// Package app assembles the pieces both binaries share.
package app

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"vehicle-checkpoint-backend/internal/config"
	"vehicle-checkpoint-backend/internal/logger"
	"vehicle-checkpoint-backend/internal/repository"
	"vehicle-checkpoint-backend/internal/repository/dynamo"
	"vehicle-checkpoint-backend/internal/repository/postgres"
)

// Store is the selected record store behind the repository interfaces.
type Store struct {
	repository.BookingRepository
	repository.CheckRecordRepository
	repository.FineRepository
	repository.SettlementRepository

	Ping  func(ctx context.Context) error
	Close func() error
}

// OpenStore connects to the configured driver and verifies it is reachable.
func OpenStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.Database.Driver {
	case config.DriverDynamoDB:
		return openDynamo(ctx, cfg.Database.Dynamo)
	default:
		return openPostgres(ctx, cfg)
	}
}

func openPostgres(ctx context.Context, cfg *config.Config) (*Store, error) {
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")

	pg := postgres.NewStore(db)
	return &Store{
		BookingRepository:     pg.BookingRepository,
		CheckRecordRepository: pg.CheckRecordRepository,
		FineRepository:        pg.FineRepository,
		SettlementRepository:  pg.SettlementRepository,
		Ping:                  pg.Ping,
		Close:                 db.Close,
	}, nil
}

func openDynamo(ctx context.Context, cfg config.DynamoConfig) (*Store, error) {
	logger.Info("Connecting to DynamoDB...", "region", cfg.Region, "endpoint", cfg.Endpoint)
	client, err := dynamo.NewClient(ctx, dynamo.Config{
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamodb client: %w", err)
	}

	ds := dynamo.NewStore(client, dynamo.Tables{
		Bookings:      cfg.BookingsTable,
		FuelPricing:   cfg.FuelPricingTable,
		Fines:         cfg.FinesTable,
		CheckRecords:  cfg.CheckRecordsTable,
		RecordIDIndex: cfg.RecordIDIndex,
	})
	if err := ds.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach dynamodb: %w", err)
	}
	logger.Info("DynamoDB connection established")

	return &Store{
		BookingRepository:     ds.BookingRepository,
		CheckRecordRepository: ds.CheckRecordRepository,
		FineRepository:        ds.FineRepository,
		SettlementRepository:  ds.SettlementRepository,
		Ping:                  ds.Ping,
		Close:                 func() error { return nil },
	}, nil
}
