package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/repository"
)

type bookingRepository struct {
	api    API
	tables Tables
}

func NewBookingRepository(api API, tables Tables) repository.BookingRepository {
	return &bookingRepository{api: api, tables: tables.WithDefaults()}
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tables.Bookings),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, repository.ErrNotFound
	}
	var it bookingItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	return fromBookingItem(it), nil
}

func (r *bookingRepository) GetFuelPricing(ctx context.Context, lessorID string) (*domain.FuelPricing, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tables.FuelPricing),
		Key: map[string]types.AttributeValue{
			"lessor_id": &types.AttributeValueMemberS{Value: lessorID},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, repository.ErrNotFound
	}
	var it fuelPricingItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	return &domain.FuelPricing{
		PricePerLiter:   parseDecimal(it.PricePerLiter),
		FixedMissingFee: parseDecimal(it.FixedMissingFee),
	}, nil
}
