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

// Fee transaction coordinator: the single place where vehicle state
// and audit history change together.

// buildDateUpdate builds an update expression covering exactly the
// supplied fee-date fields plus updated_at, conditioned on the vehicle
// item existing. Shared by PayFee and UpdateVehicle so both walk the
// same code path.
func buildDateUpdate(fields []vehicledb.DateField, now time.Time) (expression.Expression, error) {
	update := expression.Set(
		expression.Name(AttrUpdatedAt),
		expression.Value(now.UTC().Format(time.RFC3339)),
	)
	for _, field := range fields {
		update = update.Set(expression.Name(feeDateAttr(field.FeeType)), expression.Value(*field.Value))
	}
	return expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name(AttrPK))).
		WithUpdate(update).
		Build()
}

// getVehicle loads a vehicle by plate, failing NotFound when absent
func (d *DBDataAccess) getVehicle(ctx context.Context, plate string) (vehicledb.Vehicle, error) {
	var result *dynamodb.GetItemOutput
	err := d.withRetry(ctx, "get_vehicle", func() error {
		var err error
		result, err = d.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(d.tableName),
			Key: map[string]types.AttributeValue{
				AttrPK: s(vehicleKey(plate)),
				AttrSK: s(vehicleKey(plate)),
			},
		})
		return err
	})
	if err != nil {
		return vehicledb.Vehicle{}, vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to get vehicle", err)
	}
	if result.Item == nil {
		return vehicledb.Vehicle{}, vehicledb.NewError(vehicledb.ErrCodeNotFound, fmt.Sprintf("vehicle %s not found", plate))
	}
	return vehicleFromItem(result.Item)
}

// PayFee updates the vehicle's due dates and appends the audit row in
// one atomic transaction: either both writes land or neither does.
// The audit row snapshots the fee type's pre-update date.
//
// Two concurrent payments for the same vehicle and fee type race at
// the store's conflict-resolution layer; the previous date each
// records may be stale relative to the other.
func (d *DBDataAccess) PayFee(ctx context.Context, token string, feeType vehicledb.FeeType, update vehicledb.VehicleUpdate) error {
	payer, err := d.resolveToken(ctx, token)
	if err != nil {
		return err
	}

	fields, err := update.SetFields()
	if err != nil {
		return err
	}

	vehicle, err := d.getVehicle(ctx, update.VehicleNo)
	if err != nil {
		return err
	}
	previous := vehicle.FeeDate(feeType)
	if previous == "" {
		return vehicledb.NewError(vehicledb.ErrCodeValidation,
			fmt.Sprintf("vehicle %s has no %s date on record", update.VehicleNo, feeType))
	}

	expr, err := buildDateUpdate(fields, d.now())
	if err != nil {
		return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to build update", err)
	}

	history := vehicledb.TransactionHistory{
		VehicleNo:       vehicle.VehicleNo,
		Date:            previous,
		TransactionType: feeType.String(),
		Payer:           payer,
	}

	err = d.withRetry(ctx, "pay_fee", func() error {
		_, err := d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: []types.TransactWriteItem{
				{
					Update: &types.Update{
						TableName: aws.String(d.tableName),
						Key: map[string]types.AttributeValue{
							AttrPK: s(vehicleKey(update.VehicleNo)),
							AttrSK: s(vehicleKey(update.VehicleNo)),
						},
						ConditionExpression:       expr.Condition(),
						UpdateExpression:          expr.Update(),
						ExpressionAttributeNames:  expr.Names(),
						ExpressionAttributeValues: expr.Values(),
					},
				},
				{
					Put: &types.Put{
						TableName: aws.String(d.tableName),
						Item:      historyToItem(history),
					},
				},
			},
		})
		return err
	})
	if err != nil {
		if conditionFailed(err) {
			return vehicledb.WrapError(vehicledb.ErrCodeNotFound,
				fmt.Sprintf("vehicle %s not found", update.VehicleNo), err)
		}
		return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "fee payment transaction failed", err)
	}

	vehicledb.LogFeePaid(d.logger, vehicle.VehicleNo, feeType, payer)
	return nil
}

// UpdateVehicle applies the same partial date update as PayFee without
// the history side effect: a plain administrative correction. It stays
// wrapped in a transaction to share PayFee's semantics.
func (d *DBDataAccess) UpdateVehicle(ctx context.Context, token string, update vehicledb.VehicleUpdate) error {
	if _, err := d.resolveToken(ctx, token); err != nil {
		return err
	}

	fields, err := update.SetFields()
	if err != nil {
		return err
	}

	expr, err := buildDateUpdate(fields, d.now())
	if err != nil {
		return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to build update", err)
	}

	err = d.withRetry(ctx, "update_vehicle", func() error {
		_, err := d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: []types.TransactWriteItem{
				{
					Update: &types.Update{
						TableName: aws.String(d.tableName),
						Key: map[string]types.AttributeValue{
							AttrPK: s(vehicleKey(update.VehicleNo)),
							AttrSK: s(vehicleKey(update.VehicleNo)),
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
				fmt.Sprintf("vehicle %s not found", update.VehicleNo), err)
		}
		return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "vehicle update transaction failed", err)
	}

	vehicledb.LogVehicleUpdated(d.logger, update.VehicleNo)
	return nil
}
