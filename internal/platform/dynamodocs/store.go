// Package dynamodocs stores platform documents in a DynamoDB table keyed by
// (pk = "database#collection", id).
package dynamodocs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/carepulse/carepulse/internal/platform"
	"github.com/carepulse/carepulse/pkg/logging"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(context.Context, *dynamodb.UpdateItemInput, ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type record struct {
	PK        string         `dynamodbav:"pk"`
	ID        string         `dynamodbav:"id"`
	Data      map[string]any `dynamodbav:"data"`
	CreatedAt string         `dynamodbav:"createdAt"`
	UpdatedAt string         `dynamodbav:"updatedAt"`
}

// Store implements platform.Documents on DynamoDB.
type Store struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
	now       func() time.Time
}

// NewStore builds a store backed by the provided DynamoDB client.
func NewStore(client dynamoAPI, tableName string, logger *logging.Logger) *Store {
	if client == nil {
		panic("dynamodocs: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("dynamodocs: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		client:    client,
		tableName: tableName,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func partitionKey(databaseID, collectionID string) string {
	return databaseID + "#" + collectionID
}

func itemKey(databaseID, collectionID, documentID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: partitionKey(databaseID, collectionID)},
		"id": &types.AttributeValueMemberS{Value: documentID},
	}
}

// CreateDocument writes a new item, refusing to overwrite an existing id.
func (s *Store) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (*platform.Document, error) {
	ts := s.now().Format(time.RFC3339Nano)
	rec := record{
		PK:        partitionKey(databaseID, collectionID),
		ID:        documentID,
		Data:      platform.StripSystemAttrs(data),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, fmt.Errorf("dynamodocs: failed to marshal document: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, fmt.Errorf("dynamodocs: document %s: %w", documentID, platform.ErrConflict)
		}
		return nil, fmt.Errorf("dynamodocs: failed to persist document: %w", err)
	}
	return decodeItem(item, databaseID, collectionID)
}

// GetDocument fetches one item.
func (s *Store) GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (*platform.Document, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            itemKey(databaseID, collectionID, documentID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodocs: failed to fetch document: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("dynamodocs: document %s: %w", documentID, platform.ErrNotFound)
	}
	return decodeItem(out.Item, databaseID, collectionID)
}

// UpdateDocument sets each supplied attribute inside the data map.
func (s *Store) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (*platform.Document, error) {
	patch := platform.StripSystemAttrs(data)
	keys := make([]string, 0, len(patch))
	for k := range patch {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	names := map[string]string{"#data": "data", "#updated": "updatedAt"}
	values := map[string]types.AttributeValue{
		":updated": &types.AttributeValueMemberS{Value: s.now().Format(time.RFC3339Nano)},
	}
	expr := "SET #updated = :updated"
	for i, k := range keys {
		av, err := attributevalue.Marshal(patch[k])
		if err != nil {
			return nil, fmt.Errorf("dynamodocs: failed to marshal %s: %w", k, err)
		}
		name, value := fmt.Sprintf("#f%d", i), fmt.Sprintf(":v%d", i)
		names[name] = k
		values[value] = av
		expr += fmt.Sprintf(", #data.%s = %s", name, value)
	}
	if len(keys) == 0 {
		// nothing to merge; keep #data out of the expression
		delete(names, "#data")
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       itemKey(databaseID, collectionID, documentID),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, fmt.Errorf("dynamodocs: document %s: %w", documentID, platform.ErrNotFound)
		}
		return nil, fmt.Errorf("dynamodocs: failed to update document: %w", err)
	}
	return decodeItem(out.Attributes, databaseID, collectionID)
}

// ListDocuments reads the whole partition and evaluates queries in memory.
// DynamoDB cannot filter or sort on arbitrary map attributes.
func (s *Store) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...platform.Query) (*platform.DocumentList, error) {
	for _, q := range queries {
		if err := q.Validate(); err != nil {
			return nil, err
		}
	}
	var (
		docs     []*platform.Document
		startKey map[string]types.AttributeValue
		pages    int
	)
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("pk = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: partitionKey(databaseID, collectionID)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("dynamodocs: failed to query documents: %w", err)
		}
		pages++
		for _, item := range out.Items {
			doc, err := decodeItem(item, databaseID, collectionID)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	if pages > 1 {
		s.logger.Debug("dynamodocs: paginated list", "collection", collectionID, "pages", pages, "items", len(docs))
	}
	return platform.Apply(docs, queries)
}

func decodeItem(item map[string]types.AttributeValue, databaseID, collectionID string) (*platform.Document, error) {
	var rec record
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("dynamodocs: failed to decode document: %w", err)
	}
	doc := &platform.Document{
		ID:           rec.ID,
		DatabaseID:   databaseID,
		CollectionID: collectionID,
		Data:         rec.Data,
	}
	if doc.Data == nil {
		doc.Data = map[string]any{}
	}
	var err error
	if doc.CreatedAt, err = time.Parse(time.RFC3339Nano, rec.CreatedAt); err != nil {
		return nil, fmt.Errorf("dynamodocs: document %s createdAt: %w", rec.ID, err)
	}
	if doc.UpdatedAt, err = time.Parse(time.RFC3339Nano, rec.UpdatedAt); err != nil {
		return nil, fmt.Errorf("dynamodocs: document %s updatedAt: %w", rec.ID, err)
	}
	return doc, nil
}

var _ platform.Documents = (*Store)(nil)
