/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/registry"
	"github.com/suparena/recordstore/storagemodels"
)

// Client is the subset of the DynamoDB API the data store uses.
type Client interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
}

// IndexMaps resolves the key layout of a collection.
type IndexMaps interface {
	IndexMap(collection string) map[string]string
}

type defaultIndexMaps struct{}

func (defaultIndexMaps) IndexMap(string) map[string]string { return registry.DefaultIndexMap() }

// entityTypeAttr tags every item with its collection.
const entityTypeAttr = "EntityType"

// ClientConfig holds the connection settings of a DynamoDB client.
type ClientConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	// Endpoint overrides the service endpoint, e.g. for DynamoDB Local.
	Endpoint string
}

// Config configures a DataStore.
type Config struct {
	Table string
	// GSI is the secondary index serving collection queries. Defaults to GSI1.
	GSI GSIConfig
	// IndexMaps resolves key layouts. Defaults to registry.DefaultIndexMap
	// for every collection.
	IndexMaps IndexMaps
	Query     QueryOptions
	Logger    *slog.Logger
}

// DataStore implements datastore.DataStore on a single DynamoDB table.
// Key-path operations use the table's primary key with strongly consistent
// reads; Query runs on a global secondary index and is eventually consistent.
type DataStore struct {
	client    Client
	tableName string
	gsi       GSIConfig
	indexMaps IndexMaps
	opts      QueryOptions
	logger    *slog.Logger
}

// NewDynamoDBClient initializes a DynamoDB client. Static credentials are
// used when an access key is given, the default chain otherwise.
func NewDynamoDBClient(ctx context.Context, cc ClientConfig) (*sdk.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cc.Region)}
	if cc.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cc.AccessKey, cc.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return sdk.NewFromConfig(cfg, func(o *sdk.Options) {
		if cc.Endpoint != "" {
			o.BaseEndpoint = aws.String(cc.Endpoint)
		}
	}), nil
}

// New constructs a DataStore over client.
func New(client Client, cfg Config) (*DataStore, error) {
	if cfg.Table == "" {
		return nil, errors.NewValidationError("table", "table name is required")
	}
	if cfg.GSI.IndexName == "" {
		cfg.GSI = DefaultGSIConfig()
	}
	if cfg.IndexMaps == nil {
		cfg.IndexMaps = defaultIndexMaps{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cfg.Logger.Info("DynamoDB data store initialized", "table", cfg.Table, "index", cfg.GSI.IndexName)

	return &DataStore{
		client:    client,
		tableName: cfg.Table,
		gsi:       cfg.GSI,
		indexMaps: cfg.IndexMaps,
		opts:      cfg.Query.withDefaults(),
		logger:    cfg.Logger,
	}, nil
}

// Get retrieves a single record with a strongly consistent read.
// It returns nil, nil if no item is found.
func (d *DataStore) Get(ctx context.Context, key storagemodels.Key) (storagemodels.Record, error) {
	indexMap := d.indexMaps.IndexMap(key.Collection)
	keyMap, err := buildKey(indexMap, key)
	if err != nil {
		return nil, err
	}

	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:      &d.tableName,
		Key:            keyMap,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return itemToRecord(out.Item, indexMap)
}

// Set stores rec under key, expanding the index map into the primary and
// secondary key attributes. With FailIfExists the write is conditional on
// the key being unused.
func (d *DataStore) Set(ctx context.Context, key storagemodels.Key, rec storagemodels.Record, opts storagemodels.SetOptions) error {
	indexMap := d.indexMaps.IndexMap(key.Collection)
	item, err := recordToItem(indexMap, key, rec)
	if err != nil {
		return err
	}

	input := &sdk.PutItemInput{
		TableName: &d.tableName,
		Item:      item,
	}
	if opts.FailIfExists {
		input.ConditionExpression = aws.String("attribute_not_exists(#pk)")
		input.ExpressionAttributeNames = map[string]string{"#pk": registry.AttrPK}
	}

	if _, err := d.client.PutItem(ctx, input); err != nil {
		var cfe *types.ConditionalCheckFailedException
		if stderrors.As(err, &cfe) {
			return errors.NewAlreadyExistsError(key.Collection, key.ID)
		}
		return fmt.Errorf("PutItem failed: %w", err)
	}
	return nil
}

// Remove deletes the item under key and reports whether it existed.
func (d *DataStore) Remove(ctx context.Context, key storagemodels.Key) (bool, error) {
	keyMap, err := buildKey(d.indexMaps.IndexMap(key.Collection), key)
	if err != nil {
		return false, err
	}

	out, err := d.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName:    &d.tableName,
		Key:          keyMap,
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete item in DynamoDB: %w", err)
	}
	return len(out.Attributes) > 0, nil
}

// keyValues returns the macro values available to index map templates.
func keyValues(key storagemodels.Key, rec storagemodels.Record) map[string]string {
	values := make(map[string]string, len(rec)+2)
	for name, v := range rec {
		switch tv := v.(type) {
		case string:
			values[name] = tv
		case nil:
		default:
			values[name] = fmt.Sprint(tv)
		}
	}
	values[registry.MacroCollection] = key.Collection
	values[registry.MacroID] = key.ID
	return values
}

// buildKey builds the primary key of a record from the index map.
func buildKey(indexMap map[string]string, key storagemodels.Key) (map[string]types.AttributeValue, error) {
	if key.ID == "" {
		return nil, errors.NewValidationError("key", "empty identifier")
	}
	values := keyValues(key, nil)
	pk := registry.Expand(indexMap[registry.AttrPK], values)
	sk := registry.Expand(indexMap[registry.AttrSK], values)
	if pk == "" || sk == "" {
		return nil, fmt.Errorf("expanded index map missing valid PK or SK")
	}
	return map[string]types.AttributeValue{
		registry.AttrPK: &types.AttributeValueMemberS{Value: pk},
		registry.AttrSK: &types.AttributeValueMemberS{Value: sk},
	}, nil
}

// recordToItem marshals rec and injects the expanded key attributes.
func recordToItem(indexMap map[string]string, key storagemodels.Key, rec storagemodels.Record) (map[string]types.AttributeValue, error) {
	if key.ID == "" {
		return nil, errors.NewValidationError("key", "empty identifier")
	}
	for attr := range indexMap {
		if _, clash := rec[attr]; clash {
			return nil, errors.NewValidationError(attr, "field name is reserved for key attributes")
		}
	}
	if _, clash := rec[entityTypeAttr]; clash {
		return nil, errors.NewValidationError(entityTypeAttr, "field name is reserved")
	}

	item, err := attributevalue.MarshalMap(map[string]any(rec))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	for attr, v := range registry.ExpandAll(indexMap, keyValues(key, rec)) {
		item[attr] = &types.AttributeValueMemberS{Value: v}
	}
	item[entityTypeAttr] = &types.AttributeValueMemberS{Value: key.Collection}
	return item, nil
}

// itemToRecord unmarshals an item and strips the injected attributes.
func itemToRecord(item map[string]types.AttributeValue, indexMap map[string]string) (storagemodels.Record, error) {
	var rec map[string]any
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	for attr := range indexMap {
		delete(rec, attr)
	}
	delete(rec, entityTypeAttr)
	return storagemodels.Record(rec), nil
}
