package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/carson-networks/transaction-sync/internal/storage/kv"
)

// Attribute names. ttl holds epoch seconds for DynamoDB's native TTL eviction,
// expires_at_ms holds the exact expiry used by every condition and read.
const (
	attrKey       = "key"
	attrValue     = "value"
	attrExpiresAt = "expires_at_ms"
	attrTTL       = "ttl"
)

var _ kv.IKeyValueStore = (*Store)(nil)

// API is the subset of the DynamoDB client the store needs.
type API interface {
	dynamodb.ScanAPIClient
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Config holds the configuration for the DynamoDB backend.
type Config struct {
	Region    string
	TableName string
	Endpoint  string
}

type item struct {
	Key         string `dynamodbav:"key"`
	Value       []byte `dynamodbav:"value"`
	ExpiresAtMs int64  `dynamodbav:"expires_at_ms,omitempty"`
	TTL         int64  `dynamodbav:"ttl,omitempty"`
}

// Store keeps the shared key/value entries in a single DynamoDB table keyed by "key".
type Store struct {
	client    API
	tableName string
	now       func() time.Time
}

// NewStore loads the default AWS configuration and builds a Store.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			// Use a custom endpoint (e.g., for local DynamoDB)
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewStoreWithClient(client, cfg.TableName), nil
}

func NewStoreWithClient(client API, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

func (s *Store) newItem(key string, value []byte, ttl time.Duration) (map[string]types.AttributeValue, error) {
	it := item{Key: key, Value: value}
	if expiresAt := kv.ExpiryFrom(s.now(), ttl); expiresAt != nil {
		it.ExpiresAtMs = expiresAt.UnixMilli()
		it.TTL = expiresAt.Unix() + 1
	}
	return attributevalue.MarshalMap(it)
}

func (s *Store) keyOf(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrKey: &types.AttributeValueMemberS{Value: key},
	}
}

func numberOf(v int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

func isConditionFailed(err error) bool {
	var condErr *types.ConditionalCheckFailedException
	return errors.As(err, &condErr)
}

func (s *Store) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	av, err := s.newItem(key, value, ttl)
	if err != nil {
		return false, fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(#k) OR (attribute_exists(#e) AND #e <= :now)"),
		ExpressionAttributeNames: map[string]string{
			"#k": attrKey,
			"#e": attrExpiresAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": numberOf(s.now().UnixMilli()),
		},
	})
	if isConditionFailed(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("PutItem operation failed: %w", err)
	}
	return true, nil
}

func (s *Store) CompareAndExpire(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	now := s.now()
	values := map[string]types.AttributeValue{
		":v":   &types.AttributeValueMemberB{Value: value},
		":now": numberOf(now.UnixMilli()),
	}

	update := "REMOVE #e, #t"
	if expiresAt := kv.ExpiryFrom(now, ttl); expiresAt != nil {
		update = "SET #e = :exp, #t = :ttl"
		values[":exp"] = numberOf(expiresAt.UnixMilli())
		values[":ttl"] = numberOf(expiresAt.Unix() + 1)
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 s.keyOf(key),
		UpdateExpression:    aws.String(update),
		ConditionExpression: aws.String("#v = :v AND (attribute_not_exists(#e) OR #e > :now)"),
		ExpressionAttributeNames: map[string]string{
			"#v": attrValue,
			"#e": attrExpiresAt,
			"#t": attrTTL,
		},
		ExpressionAttributeValues: values,
	})
	if isConditionFailed(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("UpdateItem operation failed: %w", err)
	}
	return true, nil
}

func (s *Store) CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error) {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(s.tableName),
		Key:                      s.keyOf(key),
		ConditionExpression:      aws.String("#v = :v"),
		ExpressionAttributeNames: map[string]string{"#v": attrValue},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberB{Value: value},
		},
	})
	if isConditionFailed(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("DeleteItem operation failed: %w", err)
	}
	return true, nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	av, err := s.newItem(key, value, ttl)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("PutItem operation failed: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (*kv.Entry, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.keyOf(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem operation failed: %w", err)
	}
	if len(result.Item) == 0 {
		return nil, kv.ErrNotFound
	}

	entry, err := s.toEntry(result.Item)
	if err != nil {
		return nil, err
	}
	if !kv.IsLive(entry.ExpiresAt, s.now()) {
		return nil, kv.ErrNotFound
	}
	return entry, nil
}

func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([]*kv.Entry, error) {
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:        aws.String(s.tableName),
		ConsistentRead:   aws.Bool(true),
		FilterExpression: aws.String("begins_with(#k, :p) AND (attribute_not_exists(#e) OR #e > :now)"),
		ExpressionAttributeNames: map[string]string{
			"#k": attrKey,
			"#e": attrExpiresAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p":   &types.AttributeValueMemberS{Value: prefix},
			":now": numberOf(s.now().UnixMilli()),
		},
	})

	var result []*kv.Entry
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("Scan operation failed: %w", err)
		}
		for _, av := range page.Items {
			entry, err := s.toEntry(av)
			if err != nil {
				return nil, err
			}
			result = append(result, entry)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

// PurgeExpired is a no-op: DynamoDB evicts expired items through the ttl attribute.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) toEntry(av map[string]types.AttributeValue) (*kv.Entry, error) {
	var it item
	if err := attributevalue.UnmarshalMap(av, &it); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	entry := &kv.Entry{Key: it.Key, Value: it.Value}
	if it.ExpiresAtMs != 0 {
		expiresAt := time.UnixMilli(it.ExpiresAtMs)
		entry.ExpiresAt = &expiresAt
	}
	return entry, nil
}
