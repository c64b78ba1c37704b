//go:build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/suparena/recordstore/storagemodels"
)

// Requires a table with PK/SK string keys and a GSI1 index on GSI1PK/GSI1SK.
func getIntegrationStore(t *testing.T) *DataStore {
	t.Helper()
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, proceeding with environment variables")
	}

	table := os.Getenv("AWS_DDB_TABLE")
	if table == "" {
		t.Skip("AWS_DDB_TABLE not set, skipping integration test")
	}

	client, err := NewDynamoDBClient(context.Background(), ClientConfig{
		Region:    os.Getenv("AWS_REGION"),
		AccessKey: os.Getenv("AWS_ACCESS_KEY"),
		SecretKey: os.Getenv("AWS_SECRET_KEY"),
		Endpoint:  os.Getenv("AWS_DDB_ENDPOINT"),
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	ds, err := New(client, Config{Table: table})
	if err != nil {
		t.Fatalf("failed to create data store: %v", err)
	}
	return ds
}

func TestIntegrationKeyPath(t *testing.T) {
	ds := getIntegrationStore(t)
	ctx := context.Background()
	key := storagemodels.Key{Collection: "integration_person", ID: "TTOakville"}
	t.Cleanup(func() { _, _ = ds.Remove(ctx, key) })

	rec := storagemodels.Record{"id": "TTOakville", "name": "Oakville Table Tennis", "age": 24.0}
	if err := ds.Set(ctx, key, rec, storagemodels.SetOptions{FailIfExists: true}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := ds.Set(ctx, key, rec, storagemodels.SetOptions{FailIfExists: true}); err == nil {
		t.Fatal("Expected a duplicate create to fail")
	}

	got, err := ds.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got["name"] != rec["name"] {
		t.Errorf("Expected %v, got %v", rec, got)
	}

	removed, err := ds.Remove(ctx, key)
	if err != nil || !removed {
		t.Fatalf("Remove = %v, %v", removed, err)
	}
}

func TestIntegrationQuery(t *testing.T) {
	ds := getIntegrationStore(t)
	ctx := context.Background()

	recs, err := ds.Query(ctx, &storagemodels.QueryParams{
		Collection: "integration_person",
		Terms:      []storagemodels.Term{{Field: "age", Condition: storagemodels.Eq(24.0)}},
		Limit:      10,
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	t.Logf("Query returned %d records", len(recs))
}
