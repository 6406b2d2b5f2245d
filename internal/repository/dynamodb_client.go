// Package repository persists onboarding sessions in a single DynamoDB
// table. Optimistic concurrency rides on a revision attribute checked by a
// condition expression, so concurrent submissions for the same session
// cannot silently overwrite each other.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"onboarding-agent/internal/domain"
	"onboarding-agent/internal/store"
)

const (
	skState     = "STATE#"
	ttlDuration = 30 * 24 * time.Hour // sessions are archived after 30 days
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Client wraps a DynamoDB table for onboarding session state.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// sessionPK returns the partition key for a session.
func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

// ttlValue returns a Unix timestamp 30 days in the future.
func ttlValue() int64 {
	return time.Now().Add(ttlDuration).Unix()
}

// Get reads the session item with a consistent read so a just-committed
// submission is visible to the conflict retry path.
func (c *Client) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			"SK": &types.AttributeValueMemberS{Value: skState},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: Get session: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, store.ErrNotFound
	}
	return itemToSession(out.Item)
}

// Create writes a brand-new session at revision 0, failing with
// store.ErrConflict if the id is already taken.
func (c *Client) Create(ctx context.Context, sess *domain.Session) error {
	sess.Revision = 0
	item, err := sessionItem(sess)
	if err != nil {
		return err
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("repository: Create session: %w", err)
	}
	return nil
}

// Save persists sess at revision+1, guarded by a condition on the stored
// revision. A failed condition means another write landed first.
func (c *Client) Save(ctx context.Context, sess *domain.Session) error {
	next := sess.Clone()
	next.Revision++
	item, err := sessionItem(next)
	if err != nil {
		return err
	}
	_, err = c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                item,
		ConditionExpression: aws.String("revision = :expected"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(sess.Revision, 10)},
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("repository: Save session: %w", err)
	}
	sess.Revision = next.Revision
	return nil
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// sessionItem encodes the session as a single item. The full session is a
// JSON document in the state attribute; the revision is mirrored as a
// top-level number so condition expressions can address it.
func sessionItem(sess *domain.Session) (map[string]types.AttributeValue, error) {
	state, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("repository: encode session: %w", err)
	}
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: sessionPK(sess.ID)},
		"SK":        &types.AttributeValueMemberS{Value: skState},
		"identity":  &types.AttributeValueMemberS{Value: sess.Identity},
		"status":    &types.AttributeValueMemberS{Value: string(sess.Status)},
		"revision":  &types.AttributeValueMemberN{Value: strconv.FormatInt(sess.Revision, 10)},
		"state":     &types.AttributeValueMemberS{Value: string(state)},
		"updatedAt": &types.AttributeValueMemberS{Value: sess.UpdatedAt.UTC().Format(time.RFC3339Nano)},
		"ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(ttlValue(), 10)},
	}, nil
}

// itemToSession decodes a session item. The revision attribute is
// authoritative over the JSON copy.
func itemToSession(item map[string]types.AttributeValue) (*domain.Session, error) {
	state, err := strAttr(item, "state")
	if err != nil {
		return nil, err
	}
	var sess domain.Session
	if err := json.Unmarshal([]byte(state), &sess); err != nil {
		return nil, fmt.Errorf("repository: decode session: %w", err)
	}
	rev, err := intAttr(item, "revision")
	if err != nil {
		return nil, err
	}
	sess.Revision = rev
	return &sess, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
