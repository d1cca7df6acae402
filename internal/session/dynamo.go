package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	pkPrefix = "SESSION#"
	skToken  = "TOKEN#"
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
// *dynamodb.Client satisfies it.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoStore keeps session tokens in a DynamoDB table so several terminals
// (or machines) can share one session.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
	owner     string
}

// NewDynamoStore creates a store over tableName. owner namespaces the keys,
// typically the local user name.
func NewDynamoStore(api dynamodbAPI, tableName, owner string) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("session: dynamodb api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("session: table name must not be empty")
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		owner = "default"
	}
	return &DynamoStore{api: api, tableName: tableName, owner: owner}, nil
}

func (d *DynamoStore) partitionKey(key string) string {
	return pkPrefix + d.owner + "#" + key
}

// Load returns the token stored under key, or "" if the item does not exist.
func (d *DynamoStore) Load(ctx context.Context, key string) (string, error) {
	out, err := d.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: d.partitionKey(key)},
			"SK": &types.AttributeValueMemberS{Value: skToken},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("session: Load get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return "", nil
	}
	tok, err := strAttr(out.Item, "token")
	if err != nil {
		return "", fmt.Errorf("session: Load decode token: %w", err)
	}
	return tok, nil
}

// Save overwrites the token stored under key.
func (d *DynamoStore) Save(ctx context.Context, key, value string) error {
	_, err := d.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item: map[string]types.AttributeValue{
			"PK":        &types.AttributeValueMemberS{Value: d.partitionKey(key)},
			"SK":        &types.AttributeValueMemberS{Value: skToken},
			"token":     &types.AttributeValueMemberS{Value: value},
			"updatedAt": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("session: Save: %w", err)
	}
	return nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("session: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("session: attribute %q is not a string", key)
	}
	return s.Value, nil
}
