package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sicko7947/vehicledb"
)

// Entity codec: bidirectional mapping between domain entities and
// attribute maps, including every secondary-index projection. Decoding
// tolerates missing optional attributes.

func s(value string) *types.AttributeValueMemberS {
	return &types.AttributeValueMemberS{Value: value}
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	attr, ok := item[name]
	if !ok {
		return ""
	}
	sv, ok := attr.(*types.AttributeValueMemberS)
	if !ok {
		return ""
	}
	return sv.Value
}

// User items

func userToItem(user vehicledb.User, digest string, now time.Time) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		AttrPK:         s(userKey(user.Username)),
		AttrSK:         s(userKey(user.Username)),
		AttrEntityType: s(EntityTypeUser),
		AttrPassword:   s(digest),
		AttrCreatedAt:  s(now.UTC().Format(time.RFC3339)),
	}
	if user.Phone != "" {
		item["phone"] = s(user.Phone)
	}
	return item
}

func userFromItem(item map[string]types.AttributeValue) vehicledb.User {
	return vehicledb.User{
		Username: usernameFromKey(stringAttr(item, AttrPK)),
		Password: stringAttr(item, AttrPassword),
		Phone:    stringAttr(item, "phone"),
	}
}

// Session items

func sessionToItem(session *vehicledb.Session) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttrPK:         s(userKey(session.Username)),
		AttrSK:         s(sessionKey(session.Token)),
		AttrGSI1PK:     s(sessionKey(session.Token)),
		AttrGSI1SK:     s(userKey(session.Username)),
		AttrEntityType: s(EntityTypeSession),
		AttrCreatedAt:  s(session.CreatedAt.UTC().Format(time.RFC3339)),
		"expired_at":   s(session.ExpiredAt.UTC().Format(time.RFC3339)),
		AttrTTL:        &types.AttributeValueMemberN{Value: strconv.FormatInt(session.ExpiredAt.Unix(), 10)},
	}
}

// Vehicle items

func vehicleToItem(vehicle vehicledb.Vehicle, now time.Time) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(vehicle)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vehicle: %w", err)
	}

	key := vehicleKey(vehicle.VehicleNo)
	item[AttrPK] = s(key)
	item[AttrSK] = s(key)
	item[AttrEntityType] = s(EntityTypeVehicle)
	item[AttrCreatedAt] = s(now.UTC().Format(time.RFC3339))
	item[AttrUpdatedAt] = s(now.UTC().Format(time.RFC3339))

	// Global listing projection
	item[AttrGSI2PK] = s(vehicleMarker)
	item[AttrGSI2SK] = s(key)

	// One projection per fee type, all carried on the same item
	for _, feeType := range vehicledb.FeeTypes() {
		item[feeAttrPK(feeType)] = s(feePK(feeType))
		item[feeAttrSK(feeType)] = s(key)
	}

	return item, nil
}

func vehicleFromItem(item map[string]types.AttributeValue) (vehicledb.Vehicle, error) {
	var vehicle vehicledb.Vehicle
	if err := attributevalue.UnmarshalMap(item, &vehicle); err != nil {
		return vehicledb.Vehicle{}, fmt.Errorf("failed to unmarshal vehicle: %w", err)
	}
	if vehicle.VehicleNo == "" {
		vehicle.VehicleNo = vehicledb.DenormalizePlate(plateFromKey(stringAttr(item, AttrPK)))
	}
	return vehicle, nil
}

// SearchEntry items

func searchEntryToItem(plate string) map[string]types.AttributeValue {
	normalized := vehicledb.NormalizePlate(plate)
	return map[string]types.AttributeValue{
		AttrPK:         s(searchPartition),
		AttrSK:         s(searchKey(plate)),
		AttrGSI8PK:     s(searchPartition),
		AttrGSI8SK:     s(plateSuffix(normalized)),
		AttrEntityType: s(EntityTypeSearchEntry),
	}
}

func plateFromSearchItem(item map[string]types.AttributeValue) string {
	return vehicledb.DenormalizePlate(strings.TrimPrefix(stringAttr(item, AttrSK), searchPrefix))
}

// TransactionHistory items

func historyToItem(history vehicledb.TransactionHistory) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttrPK:         s(vehicleKey(history.VehicleNo)),
		AttrSK:         s(historySK(history.Date, vehicledb.ParseFeeType(history.TransactionType))),
		AttrGSI3PK:     s(historyPartition),
		AttrGSI3SK:     s(historyKey(history.Date)),
		AttrEntityType: s(EntityTypeHistory),
		AttrPayer:      s(history.Payer),
	}
}

func historyFromItem(item map[string]types.AttributeValue) (vehicledb.TransactionHistory, error) {
	sk := stringAttr(item, AttrSK)
	parts := strings.Split(sk, "#")
	if len(parts) != 3 {
		return vehicledb.TransactionHistory{}, fmt.Errorf("malformed history sort key %q", sk)
	}
	return vehicledb.TransactionHistory{
		VehicleNo:       vehicledb.DenormalizePlate(plateFromKey(stringAttr(item, AttrPK))),
		Date:            parts[1],
		TransactionType: parts[2],
		Payer:           stringAttr(item, AttrPayer),
	}, nil
}
