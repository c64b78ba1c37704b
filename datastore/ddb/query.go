/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/recordstore/registry"
	"github.com/suparena/recordstore/storagemodels"
)

// QueryOptions controls paging and retries of index queries.
type QueryOptions struct {
	// PageSize is the number of items evaluated per Query request.
	PageSize int32
	// MaxRetries bounds the retries of a throttled or failed page.
	MaxRetries int
	// RetryBackoff is multiplied by the attempt number between retries.
	RetryBackoff time.Duration
}

// DefaultQueryOptions returns sensible defaults
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		PageSize:     100,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
	}
}

func (o QueryOptions) withDefaults() QueryOptions {
	def := DefaultQueryOptions()
	if o.PageSize <= 0 {
		o.PageSize = def.PageSize
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = def.RetryBackoff
	}
	return o
}

// Query evaluates params against the collection's partition of the
// secondary index. Terms become a filter expression, so pages are fetched
// until the limit is reached or the partition is exhausted. Results are
// ordered by the index sort key.
func (d *DataStore) Query(ctx context.Context, params *storagemodels.QueryParams) ([]storagemodels.Record, error) {
	indexMap := d.indexMaps.IndexMap(params.Collection)
	input, err := d.buildQueryInput(indexMap, params)
	if err != nil {
		return nil, err
	}

	var results []storagemodels.Record
	pages := 0
	for {
		out, err := d.queryWithRetry(ctx, input)
		if err != nil {
			return nil, err
		}
		pages++

		for _, item := range out.Items {
			rec, err := itemToRecord(item, indexMap)
			if err != nil {
				return nil, err
			}
			results = append(results, rec)
			if params.Limit > 0 && len(results) == params.Limit {
				d.logger.DebugContext(ctx, "query reached limit", "collection", params.Collection, "pages", pages)
				return results, nil
			}
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	d.logger.DebugContext(ctx, "query exhausted partition", "collection", params.Collection, "pages", pages, "count", len(results))
	return results, nil
}

// buildQueryInput translates conjoined terms into a key condition on the
// collection partition plus a filter expression.
func (d *DataStore) buildQueryInput(indexMap map[string]string, params *storagemodels.QueryParams) (*dynamodb.QueryInput, error) {
	partition := registry.Expand(indexMap[d.gsi.PartitionKeyName], map[string]string{
		registry.MacroCollection: params.Collection,
	})
	if partition == "" {
		return nil, fmt.Errorf("index map of %q has no %s template", params.Collection, d.gsi.PartitionKeyName)
	}

	names := map[string]string{"#gpk": d.gsi.PartitionKeyName}
	values := map[string]types.AttributeValue{
		":gpk": &types.AttributeValueMemberS{Value: partition},
	}

	clauses := make([]string, 0, len(params.Terms))
	for i, term := range params.Terms {
		name := fmt.Sprintf("#f%d", i)
		names[name] = term.Field

		switch term.Op {
		case storagemodels.OpEq:
			placeholder := fmt.Sprintf(":v%d", i)
			av, err := attributevalue.Marshal(term.Value())
			if err != nil {
				return nil, fmt.Errorf("failed to marshal value of %q: %w", term.Field, err)
			}
			values[placeholder] = av
			clauses = append(clauses, fmt.Sprintf("%s = %s", name, placeholder))

		case storagemodels.OpIn:
			if len(term.Values) == 0 {
				return nil, fmt.Errorf("empty set on %q cannot be expressed as a filter", term.Field)
			}
			placeholders := make([]string, len(term.Values))
			for j, v := range term.Values {
				placeholders[j] = fmt.Sprintf(":v%d_%d", i, j)
				av, err := attributevalue.Marshal(v)
				if err != nil {
					return nil, fmt.Errorf("failed to marshal value of %q: %w", term.Field, err)
				}
				values[placeholders[j]] = av
			}
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", name, strings.Join(placeholders, ", ")))

		default:
			return nil, fmt.Errorf("unsupported operator %q on %q", term.Op, term.Field)
		}
	}

	input := &dynamodb.QueryInput{
		TableName:                 &d.tableName,
		IndexName:                 aws.String(d.gsi.IndexName),
		KeyConditionExpression:    aws.String("#gpk = :gpk"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		Limit:                     aws.Int32(d.opts.PageSize),
	}
	if len(clauses) > 0 {
		input.FilterExpression = aws.String(strings.Join(clauses, " AND "))
	}
	if len(params.Projection) > 0 {
		projected := make([]string, len(params.Projection))
		for i, field := range params.Projection {
			name := fmt.Sprintf("#p%d", i)
			names[name] = field
			projected[i] = name
		}
		input.ProjectionExpression = aws.String(strings.Join(projected, ", "))
	}
	return input, nil
}

// queryWithRetry executes a query with configurable retry logic
func (d *DataStore) queryWithRetry(ctx context.Context, input *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
	var lastErr error

	for attempt := 0; attempt <= d.opts.MaxRetries; attempt++ {
		// Check context before retry
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		out, err := d.client.Query(ctx, input)
		if err == nil {
			return out, nil
		}

		lastErr = err

		if !isRetryableError(err) {
			return nil, fmt.Errorf("query error: %w", err)
		}

		// Don't sleep after last attempt
		if attempt < d.opts.MaxRetries {
			backoff := time.Duration(attempt+1) * d.opts.RetryBackoff
			d.logger.WarnContext(ctx, "retrying throttled query", "attempt", attempt+1, "backoff", backoff, "error", err)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("query failed after %d retries: %w", d.opts.MaxRetries, lastErr)
}

// isRetryableError determines if a DynamoDB error is retryable. Service
// exceptions arrive wrapped in a *smithy.OperationError.
func isRetryableError(err error) bool {
	var throughput *types.ProvisionedThroughputExceededException
	var limit *types.RequestLimitExceeded
	var internal *types.InternalServerError
	switch {
	case stderrors.As(err, &throughput), stderrors.As(err, &limit), stderrors.As(err, &internal):
		return true
	}

	// Check for AWS SDK retryable errors
	var retryable interface{ IsRetryable() bool }
	if stderrors.As(err, &retryable) {
		return retryable.IsRetryable()
	}

	return false
}
