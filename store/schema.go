package store

import (
	"fmt"
	"strings"

	"github.com/sicko7947/vehicledb"
)

// DynamoDB schema constants for the single-table design. The key
// layout is the wire contract with pre-existing data; do not change
// prefixes or index attribute names.
const (
	// Table attributes
	AttrPK         = "PK"
	AttrSK         = "SK"
	AttrGSI1PK     = "GSI1PK" // token -> user reverse lookup
	AttrGSI1SK     = "GSI1SK"
	AttrGSI2PK     = "GSI2PK" // global vehicle listing
	AttrGSI2SK     = "GSI2SK"
	AttrGSI3PK     = "GSI3PK" // chronological history
	AttrGSI3SK     = "GSI3SK"
	AttrGSI8PK     = "GSI8PK" // plate suffix search
	AttrGSI8SK     = "GSI8SK"
	AttrEntityType = "entity_type"
	AttrTTL        = "ttl"
	AttrPayer      = "payer"
	AttrPassword   = "password"
	AttrUpdatedAt  = "updated_at"
	AttrCreatedAt  = "created_at"

	// Entity types
	EntityTypeUser        = "User"
	EntityTypeSession     = "Session"
	EntityTypeVehicle     = "Vehicle"
	EntityTypeSearchEntry = "SearchEntry"
	EntityTypeHistory     = "TransactionHistory"

	// Index names
	IndexToken       = "GSI1"
	IndexVehicleList = "GSI2"
	IndexHistory     = "GSI3"
	IndexPlateSuffix = "GSI8"

	// Constant partitions
	vehicleMarker    = "VEHICLE"
	searchPartition  = "SEARCH"
	historyPartition = "HISTORY"
)

// Key prefixes
const (
	userPrefix        = "USER#"
	sessionPrefix     = "SESSION#"
	vehiclePrefix     = "CAR#"
	transactionPrefix = "TRANSACTION#"
	searchPrefix      = "SEARCH#"
	feePrefix         = "FEE#"
)

// Key builders for single-table design

// User keys: PK=USER#{username}, SK=USER#{username}
func userKey(username string) string {
	return userPrefix + username
}

// Session keys: PK=USER#{username}, SK=SESSION#{token}
func sessionKey(token string) string {
	return sessionPrefix + token
}

// Vehicle keys: PK=CAR#{normalized plate}, SK same
func vehicleKey(plate string) string {
	return vehiclePrefix + vehicledb.NormalizePlate(plate)
}

// SearchEntry keys: PK=SEARCH, SK=SEARCH#{normalized plate}
func searchKey(fragment string) string {
	return searchPrefix + vehicledb.NormalizePlate(fragment)
}

// TransactionHistory keys: PK=CAR#{plate}, SK=TRANSACTION#{date}#{type}
func historyKey(date string) string {
	return transactionPrefix + date
}

func historySK(date string, feeType vehicledb.FeeType) string {
	return fmt.Sprintf("%s%s#%s", transactionPrefix, date, feeType)
}

// Per-fee-type index: one GSI per fee type, PK=FEE#{TYPE}, SK=vehicle
// key. The four projections are attributes of the vehicle item itself,
// so they can never diverge from it.
func feeIndexName(feeType vehicledb.FeeType) string {
	switch feeType {
	case vehicledb.FeeTypeFitness:
		return "GSI5"
	case vehicledb.FeeTypeInsurance:
		return "GSI6"
	case vehicledb.FeeTypeRoute:
		return "GSI7"
	default:
		return "GSI4"
	}
}

func feeAttrPK(feeType vehicledb.FeeType) string {
	return feeIndexName(feeType) + "PK"
}

func feeAttrSK(feeType vehicledb.FeeType) string {
	return feeIndexName(feeType) + "SK"
}

func feePK(feeType vehicledb.FeeType) string {
	return feePrefix + feeType.String()
}

// feeDateAttr is the vehicle attribute holding the due date for a fee type
func feeDateAttr(feeType vehicledb.FeeType) string {
	return strings.ToLower(feeType.String()) + "_date"
}

// plateSuffix is the alternate sort key for partial-plate search
func plateSuffix(normalized string) string {
	if len(normalized) <= 4 {
		return normalized
	}
	return normalized[len(normalized)-4:]
}

// usernameFromKey strips the USER# prefix
func usernameFromKey(key string) string {
	return strings.TrimPrefix(key, userPrefix)
}

// plateFromKey strips the CAR# prefix, returning the normalized plate
func plateFromKey(key string) string {
	return strings.TrimPrefix(key, vehiclePrefix)
}
