package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"vehicle-checkpoint-backend/internal/domain"
	"vehicle-checkpoint-backend/internal/logger"
	"vehicle-checkpoint-backend/internal/repository"
)

// maxTransactItems is the DynamoDB limit on items in one TransactWriteItems call.
const maxTransactItems = 100

type settlementRepository struct {
	api    API
	tables Tables
}

func NewSettlementRepository(api API, tables Tables) repository.SettlementRepository {
	return &settlementRepository{api: api, tables: tables.WithDefaults()}
}

func (r *settlementRepository) bookingUpdate(bookingID string, to domain.BookingStatus, condition string, values map[string]types.AttributeValue) *types.Update {
	vals := map[string]types.AttributeValue{
		":to":         &types.AttributeValueMemberS{Value: string(to)},
		":updated_at": &types.AttributeValueMemberS{Value: formatTime(time.Now())},
	}
	for k, v := range values {
		vals[k] = v
	}
	return &types.Update{
		TableName: aws.String(r.tables.Bookings),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: bookingID},
		},
		UpdateExpression:    aws.String("SET #status = :to, #updated_at = :updated_at"),
		ConditionExpression: aws.String("attribute_exists(#id) AND " + condition),
		ExpressionAttributeNames: map[string]string{
			"#id":         "id",
			"#status":     "status",
			"#updated_at": "updated_at",
		},
		ExpressionAttributeValues: vals,
	}
}

func (r *settlementRepository) ApplyCheckIn(ctx context.Context, rec *domain.CheckRecord) error {
	put, err := newRecordPut(r.tables.CheckRecords, rec)
	if err != nil {
		return err
	}
	items := []types.TransactWriteItem{
		{Put: put},
		{Update: r.bookingUpdate(rec.BookingID, domain.BookingStatusActive, "#status IN (:confirmed, :active)",
			map[string]types.AttributeValue{
				":confirmed": &types.AttributeValueMemberS{Value: string(domain.BookingStatusConfirmed)},
				":active":    &types.AttributeValueMemberS{Value: string(domain.BookingStatusActive)},
			})},
	}
	return r.transact(ctx, rec, items)
}

func (r *settlementRepository) ApplySettlement(ctx context.Context, rec *domain.CheckRecord, fineIDs []string) error {
	if len(fineIDs)+2 > maxTransactItems {
		return fmt.Errorf("too many fines to settle in one transaction: %d", len(fineIDs))
	}
	put, err := newRecordPut(r.tables.CheckRecords, rec)
	if err != nil {
		return err
	}

	paidAt := formatTime(time.Now())
	items := []types.TransactWriteItem{{Put: put}}
	for _, id := range fineIDs {
		items = append(items, types.TransactWriteItem{Update: &types.Update{
			TableName: aws.String(r.tables.Fines),
			Key: map[string]types.AttributeValue{
				"booking_id": &types.AttributeValueMemberS{Value: rec.BookingID},
				"id":         &types.AttributeValueMemberS{Value: id},
			},
			UpdateExpression:    aws.String("SET #status = :paid, #paid_at = :paid_at"),
			ConditionExpression: aws.String("#status = :unpaid"),
			ExpressionAttributeNames: map[string]string{
				"#status":  "status",
				"#paid_at": "paid_at",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":paid":    &types.AttributeValueMemberS{Value: string(domain.FineStatusPaid)},
				":unpaid":  &types.AttributeValueMemberS{Value: string(domain.FineStatusUnpaid)},
				":paid_at": &types.AttributeValueMemberS{Value: paidAt},
			},
		}})
	}
	items = append(items, types.TransactWriteItem{
		Update: r.bookingUpdate(rec.BookingID, domain.BookingStatusCompleted, "#status <> :cancelled",
			map[string]types.AttributeValue{
				":cancelled": &types.AttributeValueMemberS{Value: string(domain.BookingStatusCancelled)},
			}),
	})
	return r.transact(ctx, rec, items)
}

// transact runs the write and maps a cancelled transaction back to the item that failed:
// the record put comes first and the booking update last, fines in between.
func (r *settlementRepository) transact(ctx context.Context, rec *domain.CheckRecord, items []types.TransactWriteItem) error {
	logger.DatabaseCall("TransactWriteItems", r.tables.CheckRecords, "booking_id", rec.BookingID, "items", len(items))
	_, err := r.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err == nil {
		logger.DatabaseResult("TransactWriteItems", int64(len(items)), nil, "record_id", rec.ID)
		return nil
	}

	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		switch i := failedItem(tce); {
		case i == 0:
			err = repository.ErrRecordExists
		case i == len(items)-1:
			err = fmt.Errorf("%w: booking %s", repository.ErrBookingState, rec.BookingID)
		case i > 0:
			err = repository.ErrStaleSettlement
		}
	}
	logger.DatabaseResult("TransactWriteItems", 0, err)
	return err
}

// failedItem returns the index of the first item whose condition failed, or -1.
func failedItem(tce *types.TransactionCanceledException) int {
	for i, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return i
		}
	}
	return -1
}
