package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/sicko7947/vehicledb"
)

// createSession writes a fresh session item for the user. The item
// carries its own TTL; the store reclaims it after expiry, which is
// the only expiry mechanism.
func (d *DBDataAccess) createSession(ctx context.Context, username string) (*vehicledb.Session, error) {
	now := d.now()
	session := &vehicledb.Session{
		Token:     uuid.NewString(),
		Username:  username,
		CreatedAt: now,
		ExpiredAt: now.Add(vehicledb.SessionDuration),
	}

	err := d.withRetry(ctx, "create_session", func() error {
		_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(d.tableName),
			Item:      sessionToItem(session),
		})
		return err
	})
	if err != nil {
		return nil, vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to create session", err)
	}

	vehicledb.LogSessionCreated(d.logger, username)
	return session, nil
}

// resolveToken looks the token up on the reverse index and returns the
// owning username. An absent item means the token never existed or its
// TTL expired and the store reclaimed it; both are unauthorized.
func (d *DBDataAccess) resolveToken(ctx context.Context, token string) (string, error) {
	var result *dynamodb.QueryOutput
	err := d.withRetry(ctx, "resolve_token", func() error {
		var err error
		result, err = d.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(d.tableName),
			IndexName:              aws.String(IndexToken),
			KeyConditionExpression: aws.String("GSI1PK = :token"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":token": s(sessionKey(token)),
			},
			Limit: aws.Int32(1),
		})
		return err
	})
	if err != nil {
		return "", vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to resolve token", err)
	}

	if len(result.Items) == 0 {
		return "", vehicledb.NewError(vehicledb.ErrCodeUnauthorized, "invalid or expired session")
	}
	return usernameFromKey(stringAttr(result.Items[0], AttrGSI1SK)), nil
}

// RevokeSessions deletes every session belonging to the token's user
// and returns the username.
//
// The deletions are sequential and fail-fast, not atomic: if one
// delete fails, earlier deletions stay deleted and the remainder are
// left in place. Callers see a store failure and may simply retry;
// re-deleting an already-deleted session is a no-op.
func (d *DBDataAccess) RevokeSessions(ctx context.Context, token string) (string, error) {
	username, err := d.resolveToken(ctx, token)
	if err != nil {
		return "", err
	}

	var items []map[string]types.AttributeValue
	var lastEvaluatedKey map[string]types.AttributeValue
	for {
		queryInput := &dynamodb.QueryInput{
			TableName:              aws.String(d.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": s(userKey(username)),
				":sk": s(sessionPrefix),
			},
		}
		if lastEvaluatedKey != nil {
			queryInput.ExclusiveStartKey = lastEvaluatedKey
		}

		var result *dynamodb.QueryOutput
		err := d.withRetry(ctx, "list_sessions", func() error {
			var err error
			result, err = d.client.Query(ctx, queryInput)
			return err
		})
		if err != nil {
			return "", vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to list sessions", err)
		}

		items = append(items, result.Items...)
		if result.LastEvaluatedKey == nil {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}

	for i, item := range items {
		err := d.withRetry(ctx, "delete_session", func() error {
			_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(d.tableName),
				Key: map[string]types.AttributeValue{
					AttrPK: item[AttrPK],
					AttrSK: item[AttrSK],
				},
			})
			return err
		})
		if err != nil {
			return "", vehicledb.WrapError(vehicledb.ErrCodeStoreFailure,
				fmt.Sprintf("failed to delete session %d of %d", i+1, len(items)), err)
		}
	}

	vehicledb.LogSessionsRevoked(d.logger, username, len(items))
	return username, nil
}
