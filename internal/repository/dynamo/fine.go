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

type fineRepository struct {
	api    API
	tables Tables
}

func NewFineRepository(api API, tables Tables) repository.FineRepository {
	return &fineRepository{api: api, tables: tables.WithDefaults()}
}

func (r *fineRepository) ListUnpaidByBooking(ctx context.Context, bookingID string) ([]domain.Fine, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tables.Fines),
		KeyConditionExpression: aws.String("#booking_id = :booking_id"),
		FilterExpression:       aws.String("#status = :unpaid"),
		ExpressionAttributeNames: map[string]string{
			"#booking_id": "booking_id",
			"#status":     "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":booking_id": &types.AttributeValueMemberS{Value: bookingID},
			":unpaid":     &types.AttributeValueMemberS{Value: string(domain.FineStatusUnpaid)},
		},
		ConsistentRead: aws.Bool(true),
	}

	var fines []domain.Fine
	for {
		out, err := r.api.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		var items []fineItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, err
		}
		for _, it := range items {
			fines = append(fines, fromFineItem(it))
		}
		if len(out.LastEvaluatedKey) == 0 {
			return fines, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}
