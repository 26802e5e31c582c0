package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sicko7947/vehicledb"
	"github.com/sicko7947/vehicledb/auth"
)

// CreateUser registers a new account. Uniqueness is enforced by the
// conditional write, never by a check-then-write.
func (d *DBDataAccess) CreateUser(ctx context.Context, user vehicledb.User) error {
	if user.Username == "" || user.Password == "" {
		return vehicledb.NewError(vehicledb.ErrCodeValidation, "username and password are required")
	}

	digest, err := auth.HashPassword(user.Password)
	if err != nil {
		return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to hash password", err)
	}

	cond := expression.AttributeNotExists(expression.Name(AttrPK)).
		And(expression.AttributeNotExists(expression.Name(AttrSK)))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to build condition", err)
	}

	err = d.withRetry(ctx, "create_user", func() error {
		_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                aws.String(d.tableName),
			Item:                     userToItem(user, digest, d.now()),
			ConditionExpression:      expr.Condition(),
			ExpressionAttributeNames: expr.Names(),
		})
		return err
	})
	if err != nil {
		return classify(err, fmt.Sprintf("user %s already exists", user.Username))
	}

	vehicledb.LogUserCreated(d.logger, user.Username)
	return nil
}

// getUser loads a user item by username
func (d *DBDataAccess) getUser(ctx context.Context, username string) (map[string]types.AttributeValue, error) {
	var result *dynamodb.GetItemOutput
	err := d.withRetry(ctx, "get_user", func() error {
		var err error
		result, err = d.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(d.tableName),
			Key: map[string]types.AttributeValue{
				AttrPK: s(userKey(username)),
				AttrSK: s(userKey(username)),
			},
		})
		return err
	})
	if err != nil {
		return nil, vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to get user", err)
	}
	return result.Item, nil
}

// Authenticate verifies the credentials and opens a new session. A
// missing user and a wrong password are indistinguishable to the
// caller.
func (d *DBDataAccess) Authenticate(ctx context.Context, user vehicledb.User) (*vehicledb.Session, error) {
	item, err := d.getUser(ctx, user.Username)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, vehicledb.NewError(vehicledb.ErrCodeUnauthorized, "invalid credentials")
	}

	stored := userFromItem(item)
	if !auth.VerifyPassword(user.Password, stored.Password) {
		return nil, vehicledb.NewError(vehicledb.ErrCodeUnauthorized, "invalid credentials")
	}

	return d.createSession(ctx, stored.Username)
}

// ChangePassword verifies the old password and replaces the stored
// digest. The update is conditioned on the user item still existing.
func (d *DBDataAccess) ChangePassword(ctx context.Context, token, oldPassword, newPassword string) error {
	if newPassword == "" {
		return vehicledb.NewError(vehicledb.ErrCodeValidation, "new password is required")
	}

	username, err := d.resolveToken(ctx, token)
	if err != nil {
		return err
	}

	item, err := d.getUser(ctx, username)
	if err != nil {
		return err
	}
	if item == nil {
		return vehicledb.NewError(vehicledb.ErrCodeNotFound, fmt.Sprintf("user %s not found", username))
	}
	if !auth.VerifyPassword(oldPassword, userFromItem(item).Password) {
		return vehicledb.NewError(vehicledb.ErrCodeUnauthorized, "invalid credentials")
	}

	digest, err := auth.HashPassword(newPassword)
	if err != nil {
		return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to hash password", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name(AttrPK))).
		WithUpdate(expression.Set(expression.Name(AttrPassword), expression.Value(digest))).
		Build()
	if err != nil {
		return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to build update", err)
	}

	err = d.withRetry(ctx, "change_password", func() error {
		_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName: aws.String(d.tableName),
			Key: map[string]types.AttributeValue{
				AttrPK: s(userKey(username)),
				AttrSK: s(userKey(username)),
			},
			ConditionExpression:       expr.Condition(),
			UpdateExpression:          expr.Update(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		return err
	})
	if err != nil {
		if conditionFailed(err) {
			return vehicledb.WrapError(vehicledb.ErrCodeNotFound, fmt.Sprintf("user %s not found", username), err)
		}
		return vehicledb.WrapError(vehicledb.ErrCodeStoreFailure, "failed to change password", err)
	}

	d.logger.Info().Str("event", vehicledb.EventPasswordChanged).Str("username", username).Msg("Password changed")
	return nil
}
