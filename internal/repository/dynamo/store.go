package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"vehicle-checkpoint-backend/internal/repository"
)

type Store struct {
	api    API
	tables Tables
	repository.BookingRepository
	repository.CheckRecordRepository
	repository.FineRepository
	repository.SettlementRepository
}

func NewStore(api API, tables Tables) *Store {
	tables = tables.WithDefaults()
	return &Store{
		api:                   api,
		tables:                tables,
		BookingRepository:     NewBookingRepository(api, tables),
		CheckRecordRepository: NewCheckRecordRepository(api, tables),
		FineRepository:        NewFineRepository(api, tables),
		SettlementRepository:  NewSettlementRepository(api, tables),
	}
}

// Ping reads at most one booking to confirm the table is reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.api.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(s.tables.Bookings),
		Limit:     aws.Int32(1),
	})
	return err
}
