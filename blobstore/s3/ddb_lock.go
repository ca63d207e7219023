package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/hupe1980/segread/directory"
)

// DDBClient is the subset of the DynamoDB API the lock factory uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

var _ DDBClient = (*dynamodb.Client)(nil)

// DDBLockFactory implements directory.LockFactory with DynamoDB conditional
// writes, giving S3-backed directories a lock that works across processes.
//
// Table schema:
//   - Partition key: lock_id (string)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name segread-locks \
//	  --attribute-definitions AttributeName=lock_id,AttributeType=S \
//	  --key-schema AttributeName=lock_id,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
type DDBLockFactory struct {
	client DDBClient
	table  string
	scope  string
}

// NewDDBLockFactory creates locks in table. scope (usually the directory's
// bucket and prefix) namespaces lock names.
func NewDDBLockFactory(client DDBClient, table, scope string) *DDBLockFactory {
	return &DDBLockFactory{client: client, table: table, scope: scope}
}

// NewDDBLockFactoryFromConfig builds the DynamoDB client from the default
// AWS configuration chain. An empty region keeps the configured one.
func NewDDBLockFactoryFromConfig(ctx context.Context, table, scope, region string) (*DDBLockFactory, error) {
	var loadOpts []func(*config.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}
	return NewDDBLockFactory(dynamodb.NewFromConfig(cfg), table, scope), nil
}

// WithScope returns a factory sharing f's client and table with locks
// namespaced by scope.
func (f *DDBLockFactory) WithScope(scope string) *DDBLockFactory {
	return &DDBLockFactory{client: f.client, table: f.table, scope: scope}
}

func (f *DDBLockFactory) lockID(name string) string {
	return f.scope + "/" + name
}

func (f *DDBLockFactory) key(name string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"lock_id": &types.AttributeValueMemberS{Value: f.lockID(name)},
	}
}

func (f *DDBLockFactory) MakeLock(name string) directory.Lock {
	return &ddbLock{f: f, name: name}
}

// ClearLock deletes the lock item regardless of owner.
func (f *DDBLockFactory) ClearLock(ctx context.Context, name string) error {
	_, err := f.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(f.table),
		Key:       f.key(name),
	})
	return err
}

type ddbLock struct {
	f    *DDBLockFactory
	name string

	mu    sync.Mutex
	owner string
}

func (l *ddbLock) Obtain(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.owner != "" {
		return false, nil
	}
	owner := uuid.NewString()
	_, err := l.f.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.f.table),
		Item: map[string]types.AttributeValue{
			"lock_id":     &types.AttributeValueMemberS{Value: l.f.lockID(l.name)},
			"owner":       &types.AttributeValueMemberS{Value: owner},
			"acquired_at": &types.AttributeValueMemberN{Value: strconv.FormatInt(time.Now().Unix(), 10)},
		},
		ConditionExpression: aws.String("attribute_not_exists(lock_id)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return false, fmt.Errorf("s3: obtain lock %s: %w", l.name, err)
	}
	l.owner = owner
	return true, nil
}

func (l *ddbLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.owner == "" {
		return directory.ErrLockNotHeld
	}
	_, err := l.f.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(l.f.table),
		Key:                 l.f.key(l.name),
		ConditionExpression: aws.String("#owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": "owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: l.owner},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			l.owner = ""
			return fmt.Errorf("%w: %s was cleared or taken over", directory.ErrLockNotHeld, l.name)
		}
		return fmt.Errorf("s3: release lock %s: %w", l.name, err)
	}
	l.owner = ""
	return nil
}

func (l *ddbLock) IsLocked(ctx context.Context) (bool, error) {
	resp, err := l.f.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(l.f.table),
		Key:            l.f.key(l.name),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, err
	}
	return len(resp.Item) > 0, nil
}
