package dynamo

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/logger"
	"vehicle-checkpoint-backend/internal/repository"
)

type checkRecordRepository struct {
	api    API
	tables Tables
}

func NewCheckRecordRepository(api API, tables Tables) repository.CheckRecordRepository {
	return &checkRecordRepository{api: api, tables: tables.WithDefaults()}
}

// newRecordPut assigns ID and CreatedAt and builds a put that fails if the
// (booking_id, record_type) key is already taken.
func newRecordPut(table string, rec *domain.CheckRecord) (*types.Put, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()
	av, err := attributevalue.MarshalMap(toCheckRecordItem(rec))
	if err != nil {
		return nil, err
	}
	return &types.Put{
		TableName:           aws.String(table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#booking_id)"),
		ExpressionAttributeNames: map[string]string{
			"#booking_id": "booking_id",
		},
	}, nil
}

func (r *checkRecordRepository) Create(ctx context.Context, rec *domain.CheckRecord) error {
	put, err := newRecordPut(r.tables.CheckRecords, rec)
	if err != nil {
		return err
	}
	logger.DatabaseCall("check_records.Put", r.tables.CheckRecords, "booking_id", rec.BookingID, "record_type", rec.RecordType)
	_, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                put.TableName,
		Item:                     put.Item,
		ConditionExpression:      put.ConditionExpression,
		ExpressionAttributeNames: put.ExpressionAttributeNames,
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			err = repository.ErrRecordExists
		}
		logger.DatabaseResult("check_records.Put", 0, err)
		return err
	}
	logger.DatabaseResult("check_records.Put", 1, nil, "record_id", rec.ID)
	return nil
}

func (r *checkRecordRepository) GetByBookingAndType(ctx context.Context, bookingID string, recordType domain.RecordType) (*domain.CheckRecord, error) {
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tables.CheckRecords),
		Key: map[string]types.AttributeValue{
			"booking_id":  &types.AttributeValueMemberS{Value: bookingID},
			"record_type": &types.AttributeValueMemberS{Value: string(recordType)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, repository.ErrNotFound
	}
	var it checkRecordItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	return fromCheckRecordItem(it), nil
}

// ListPendingReview scans; flagged records are rare and this runs from a periodic job.
func (r *checkRecordRepository) ListPendingReview(ctx context.Context, limit int) ([]domain.CheckRecord, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(r.tables.CheckRecords),
		FilterExpression: aws.String("attribute_exists(#flags) AND attribute_not_exists(#reviewed_at)"),
		ExpressionAttributeNames: map[string]string{
			"#flags":       "review_flags",
			"#reviewed_at": "reviewed_at",
		},
	}

	var records []domain.CheckRecord
	for {
		out, err := r.api.Scan(ctx, input)
		if err != nil {
			return nil, err
		}
		var items []checkRecordItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, err
		}
		for _, it := range items {
			records = append(records, *fromCheckRecordItem(it))
			if limit > 0 && len(records) >= limit {
				return records, nil
			}
		}
		if len(out.LastEvaluatedKey) == 0 {
			return records, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (r *checkRecordRepository) MarkReviewed(ctx context.Context, id string, reviewedAt time.Time) error {
	out, err := r.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tables.CheckRecords),
		IndexName:              aws.String(r.tables.RecordIDIndex),
		KeyConditionExpression: aws.String("#id = :id"),
		ExpressionAttributeNames: map[string]string{
			"#id": "id",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: id},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return err
	}
	if len(out.Items) == 0 {
		return repository.ErrNotFound
	}
	var it checkRecordItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &it); err != nil {
		return err
	}

	_, err = r.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tables.CheckRecords),
		Key: map[string]types.AttributeValue{
			"booking_id":  &types.AttributeValueMemberS{Value: it.BookingID},
			"record_type": &types.AttributeValueMemberS{Value: it.RecordType},
		},
		UpdateExpression:    aws.String("SET #reviewed_at = :reviewed_at"),
		ConditionExpression: aws.String("attribute_not_exists(#reviewed_at)"),
		ExpressionAttributeNames: map[string]string{
			"#reviewed_at": "reviewed_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":reviewed_at": &types.AttributeValueMemberS{Value: formatTime(reviewedAt)},
		},
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return repository.ErrNotFound
		}
		return err
	}
	return nil
}
