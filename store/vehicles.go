package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sicko7947/vehicledb"
)

// queryAll drains a paginated query and returns every item
func (d *DBDataAccess) queryAll(ctx context.Context, operation string, input *dynamodb.QueryInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	var lastEvaluatedKey map[string]types.AttributeValue

	for {
		if lastEvaluatedKey != nil {
			input.ExclusiveStartKey = lastEvaluatedKey
		}

		var result *dynamodb.QueryOutput
		err := d.withRetry(ctx, operation, func() error {
			var err error
			result, err = d.client.Query(ctx, input)
			return err
		})
		if err != nil {
			return nil, err
		}

		items = append(items, result.Items...)
		if result.LastEvaluatedKey == nil {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}

	return items, nil
}

// AddVehicle registers a vehicle together with its search entry in one
// atomic transaction. Either both items land or neither does; an
// existing vehicle or search entry fails the whole operation.
func (d *DBDataAccess) AddVehicle(ctx context.Context, token string, vehicle vehicledb.Vehicle) error {
	if _, err := d.resolveToken(ctx, token); err != nil {
		return err
	}

	if vehicle.VehicleNo == "" || vehicle.Owner == "" {
		return vehicledb.NewError(vehicledb.ErrCodeValidation, "vehicle_no and owner are required")
	}
	for _, feeType := range vehicledb.FeeTypes() {
		date, err := vehicledb.CanonicalDate(vehicle.FeeDate(feeType))
		if err != nil {
			return err
		}
		vehicle.SetFeeDate(feeType, date)
	}

	item, err := vehicleToItem(vehicle, d.now())
	if err != nil {
		return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to encode vehicle", err)
	}

	mustNotExist := aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)")
	err = d.withRetry(ctx, "add_vehicle", func() error {
		_, err := d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: []types.TransactWriteItem{
				{
					Put: &types.Put{
						TableName:           aws.String(d.tableName),
						Item:                item,
						ConditionExpression: mustNotExist,
					},
				},
				{
					Put: &types.Put{
						TableName:           aws.String(d.tableName),
						Item:                searchEntryToItem(vehicle.VehicleNo),
						ConditionExpression: mustNotExist,
					},
				},
			},
		})
		return err
	})
	if err != nil {
		return classify(err, fmt.Sprintf("vehicle %s already exists", vehicle.VehicleNo))
	}

	vehicledb.LogVehicleAdded(d.logger, vehicle.VehicleNo, vehicle.Owner)
	return nil
}

// ListVehicles returns every registered vehicle, unordered
func (d *DBDataAccess) ListVehicles(ctx context.Context, token string) ([]vehicledb.Vehicle, error) {
	if _, err := d.resolveToken(ctx, token); err != nil {
		return nil, err
	}

	items, err := d.queryAll(ctx, "list_vehicles", &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		IndexName:              aws.String(IndexVehicleList),
		KeyConditionExpression: aws.String("GSI2PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": s(vehicleMarker),
		},
	})
	if err != nil {
		return nil, vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to list vehicles", err)
	}

	vehicles := make([]vehicledb.Vehicle, 0, len(items))
	for _, item := range items {
		vehicle, err := vehicleFromItem(item)
		if err != nil {
			return nil, vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to decode vehicle", err)
		}
		vehicles = append(vehicles, vehicle)
	}
	return vehicles, nil
}

// ListVehiclesByFee queries the fee type's index and filters the
// result by the corresponding due-date attribute against the filter's
// window.
func (d *DBDataAccess) ListVehiclesByFee(ctx context.Context, token string, feeType vehicledb.FeeType, due vehicledb.DueFilter) ([]vehicledb.Vehicle, error) {
	if _, err := d.resolveToken(ctx, token); err != nil {
		return nil, err
	}

	items, err := d.queryAll(ctx, "list_vehicles_by_fee", &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		IndexName:              aws.String(feeIndexName(feeType)),
		KeyConditionExpression: aws.String(fmt.Sprintf("%s = :pk", feeAttrPK(feeType))),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": s(feePK(feeType)),
		},
	})
	if err != nil {
		return nil, vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to list vehicles by fee", err)
	}

	today := d.now()
	var vehicles []vehicledb.Vehicle
	for _, item := range items {
		vehicle, err := vehicleFromItem(item)
		if err != nil {
			return nil, vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to decode vehicle", err)
		}
		if due.Matches(vehicle.FeeDate(feeType), today) {
			vehicles = append(vehicles, vehicle)
		}
	}
	return vehicles, nil
}

// SearchVehicles finds plates by partial match. A 4-character fragment
// searches the suffix index (the common "last four digits" case);
// anything longer is a prefix match over the search partition. Returns
// canonical dashed plates.
func (d *DBDataAccess) SearchVehicles(ctx context.Context, token, fragment string) ([]string, error) {
	if _, err := d.resolveToken(ctx, token); err != nil {
		return nil, err
	}

	normalized := vehicledb.NormalizePlate(fragment)
	if normalized == "" {
		return nil, vehicledb.NewError(vehicledb.ErrCodeValidation, "search fragment is required")
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": s(searchPartition),
			":sk": s(searchPrefix + normalized),
		},
	}
	if len(normalized) == 4 {
		input = &dynamodb.QueryInput{
			TableName:              aws.String(d.tableName),
			IndexName:              aws.String(IndexPlateSuffix),
			KeyConditionExpression: aws.String("GSI8PK = :pk AND GSI8SK = :suffix"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     s(searchPartition),
				":suffix": s(normalized),
			},
		}
	}

	items, err := d.queryAll(ctx, "search_vehicles", input)
	if err != nil {
		return nil, vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to search vehicles", err)
	}

	plates := make([]string, 0, len(items))
	for _, item := range items {
		plates = append(plates, plateFromSearchItem(item))
	}
	return plates, nil
}
