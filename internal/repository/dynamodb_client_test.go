package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"onboarding-agent/internal/domain"
	"onboarding-agent/internal/store"
)

type fakeDynamo struct {
	getOut       *dynamodb.GetItemOutput
	getErr       error
	putErr       error
	lastGetInput *dynamodb.GetItemInput
	lastPutInput *dynamodb.PutItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "test-table")
	require.NoError(t, err)
	return c
}

func testSession(id string, revision int64) *domain.Session {
	return &domain.Session{
		ID:            id,
		Identity:      "user-1",
		Status:        domain.StatusQuestion,
		CurrentStepID: "display_name",
		Steps: []domain.StepProgress{
			{StepID: "display_name", Status: domain.StepCurrent},
		},
		Answers:   map[string]domain.Answer{},
		Revision:  revision,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}

func sessionAsItem(t *testing.T, sess *domain.Session) map[string]types.AttributeValue {
	t.Helper()
	item, err := sessionItem(sess)
	require.NoError(t, err)
	return item
}

func TestNew_Validates(t *testing.T) {
	_, err := New(nil, "t")
	require.Error(t, err)
	_, err = New(&fakeDynamo{}, " ")
	require.Error(t, err)
}

func TestGet_HappyPath(t *testing.T) {
	sess := testSession("abc", 3)
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: sessionAsItem(t, sess)}}
	c := mustNewClient(t, db)

	got, err := c.Get(context.Background(), "abc")
	require.NoError(t, err)
	require.Equal(t, "abc", got.ID)
	require.EqualValues(t, 3, got.Revision)
	require.Equal(t, "display_name", got.CurrentStepID)

	require.NotNil(t, db.lastGetInput)
	require.True(t, *db.lastGetInput.ConsistentRead)
}

func TestGet_NotFound(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}
	c := mustNewClient(t, db)
	_, err := c.Get(context.Background(), "abc")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestGet_APIError(t *testing.T) {
	db := &fakeDynamo{getErr: errors.New("boom")}
	c := mustNewClient(t, db)
	_, err := c.Get(context.Background(), "abc")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Get session")
}

func TestGet_MalformedState(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"PK":       &types.AttributeValueMemberS{Value: "SESSION#abc"},
		"SK":       &types.AttributeValueMemberS{Value: skState},
		"state":    &types.AttributeValueMemberS{Value: "{not json"},
		"revision": &types.AttributeValueMemberN{Value: "0"},
	}}}
	c := mustNewClient(t, db)
	_, err := c.Get(context.Background(), "abc")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode session")
}

func TestCreate_SetsGuardAndRevisionZero(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	sess := testSession("abc", 7)

	require.NoError(t, c.Create(context.Background(), sess))
	require.EqualValues(t, 0, sess.Revision)
	require.NotNil(t, db.lastPutInput)
	require.Equal(t, "attribute_not_exists(PK)", *db.lastPutInput.ConditionExpression)
}

func TestCreate_Conflict(t *testing.T) {
	db := &fakeDynamo{putErr: &types.ConditionalCheckFailedException{}}
	c := mustNewClient(t, db)
	err := c.Create(context.Background(), testSession("abc", 0))
	require.ErrorIs(t, err, store.ErrConflict)
}

func TestSave_ChecksExpectedRevision(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	sess := testSession("abc", 4)

	require.NoError(t, c.Save(context.Background(), sess))
	require.EqualValues(t, 5, sess.Revision)

	in := db.lastPutInput
	require.NotNil(t, in)
	require.Equal(t, "revision = :expected", *in.ConditionExpression)
	expected, ok := in.ExpressionAttributeValues[":expected"].(*types.AttributeValueMemberN)
	require.True(t, ok)
	require.Equal(t, "4", expected.Value)

	rev, ok := in.Item["revision"].(*types.AttributeValueMemberN)
	require.True(t, ok)
	require.Equal(t, "5", rev.Value)

	// The JSON state carries the new revision too.
	state, ok := in.Item["state"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	var persisted domain.Session
	require.NoError(t, json.Unmarshal([]byte(state.Value), &persisted))
	require.EqualValues(t, 5, persisted.Revision)
}

func TestSave_Conflict(t *testing.T) {
	db := &fakeDynamo{putErr: &types.ConditionalCheckFailedException{}}
	c := mustNewClient(t, db)
	sess := testSession("abc", 4)

	err := c.Save(context.Background(), sess)
	require.ErrorIs(t, err, store.ErrConflict)
	require.EqualValues(t, 4, sess.Revision)
}

func TestSave_APIError(t *testing.T) {
	db := &fakeDynamo{putErr: errors.New("throttled")}
	c := mustNewClient(t, db)
	err := c.Save(context.Background(), testSession("abc", 0))
	require.Error(t, err)
	require.NotErrorIs(t, err, store.ErrConflict)
}
