package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sicko7947/vehicledb"
)

// ViewHistory returns the audit rows whose date falls in
// [today - days, today], newest first.
func (d *DBDataAccess) ViewHistory(ctx context.Context, token string, days int) ([]vehicledb.TransactionHistory, error) {
	if _, err := d.resolveToken(ctx, token); err != nil {
		return nil, err
	}
	if days < 0 {
		return nil, vehicledb.NewError(vehicledb.ErrCodeValidation, "days must not be negative")
	}

	today := d.now().UTC()
	start := today.AddDate(0, 0, -days)

	var records []vehicledb.TransactionHistory
	var lastEvaluatedKey map[string]types.AttributeValue
	for {
		queryInput := &dynamodb.QueryInput{
			TableName:              aws.String(d.tableName),
			IndexName:              aws.String(IndexHistory),
			KeyConditionExpression: aws.String("GSI3PK = :pk AND GSI3SK BETWEEN :start AND :end"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":    s(historyPartition),
				":start": s(historyKey(start.Format(vehicledb.DateLayout))),
				":end":   s(historyKey(today.Format(vehicledb.DateLayout))),
			},
			// Newest first
			ScanIndexForward: aws.Bool(false),
		}
		if lastEvaluatedKey != nil {
			queryInput.ExclusiveStartKey = lastEvaluatedKey
		}

		var result *dynamodb.QueryOutput
		err := d.withRetry(ctx, "view_history", func() error {
			var err error
			result, err = d.client.Query(ctx, queryInput)
			return err
		})
		if err != nil {
			return nil, vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to view history", err)
		}

		for _, item := range result.Items {
			record, err := historyFromItem(item)
			if err != nil {
				return nil, vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to decode history", err)
			}
			records = append(records, record)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}

	return records, nil
}

// UndoHistory reverses a payment: it deletes the audit row and
// restores the vehicle's fee date to the row's snapshotted value, in
// one atomic transaction with the same guarantee as PayFee.
//
// Only the most recent payment for a vehicle and fee type may be
// undone; undoing an older one would clobber dates written by later
// payments, so it is rejected.
func (d *DBDataAccess) UndoHistory(ctx context.Context, token string, record vehicledb.TransactionHistory) error {
	if _, err := d.resolveToken(ctx, token); err != nil {
		return err
	}

	date, err := vehicledb.CanonicalDate(record.Date)
	if err != nil {
		return err
	}
	feeType := vehicledb.ParseFeeType(record.TransactionType)

	// Reject if a later row exists for the same vehicle and fee type
	items, err := d.queryAll(ctx, "list_vehicle_history", &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": s(vehicleKey(record.VehicleNo)),
			":sk": s(transactionPrefix),
		},
	})
	if err != nil {
		return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to list vehicle history", err)
	}
	for _, item := range items {
		other, err := historyFromItem(item)
		if err != nil {
			continue
		}
		if vehicledb.ParseFeeType(other.TransactionType) == feeType && other.Date > date {
			return vehicledb.NewError(vehicledb.ErrCodeValidation,
				fmt.Sprintf("a later %s payment exists for vehicle %s; undo it first", feeType, record.VehicleNo))
		}
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name(AttrPK))).
		WithUpdate(expression.Set(
			expression.Name(feeDateAttr(feeType)),
			expression.Value(date),
		).Set(
			expression.Name(AttrUpdatedAt),
			expression.Value(d.now().UTC().Format(time.RFC3339)),
		)).
		Build()
	if err != nil {
		return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to build update", err)
	}

	err = d.withRetry(ctx, "undo_history", func() error {
		_, err := d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: []types.TransactWriteItem{
				{
					Delete: &types.Delete{
						TableName: aws.String(d.tableName),
						Key: map[string]types.AttributeValue{
							AttrPK: s(vehicleKey(record.VehicleNo)),
							AttrSK: s(historySK(date, feeType)),
						},
						ConditionExpression: aws.String("attribute_exists(PK)"),
					},
				},
				{
					Update: &types.Update{
						TableName: aws.String(d.tableName),
						Key: map[string]types.AttributeValue{
							AttrPK: s(vehicleKey(record.VehicleNo)),
							AttrSK: s(vehicleKey(record.VehicleNo)),
						},
						ConditionExpression:       expr.Condition(),
						UpdateExpression:          expr.Update(),
						ExpressionAttributeNames:  expr.Names(),
						ExpressionAttributeValues: expr.Values(),
					},
				},
			},
		})
		return err
	})
	if err != nil {
		if conditionFailed(err) {
			return vehicledb.WrapError(vehicledb.ErrCodeNotFound,
				fmt.Sprintf("history record for vehicle %s on %s not found", record.VehicleNo, date), err)
		}
		return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "undo transaction failed", err)
	}

	vehicledb.LogHistoryUndone(d.logger, record.VehicleNo, feeType)
	return nil
}
