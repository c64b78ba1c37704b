/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import "github.com/suparena/recordstore/registry"

// GSIConfig holds the configuration for GSI key mappings
type GSIConfig struct {
	// IndexName is the actual GSI name in DynamoDB (e.g., "GSI1")
	IndexName string
	// PartitionKeyName is the partition key attribute of the GSI. Its index
	// map template must expand to a per-collection constant.
	PartitionKeyName string
}

// DefaultGSIConfig returns the index layout of registry.DefaultIndexMap.
func DefaultGSIConfig() GSIConfig {
	return GSIConfig{
		IndexName:        "GSI1",
		PartitionKeyName: registry.AttrGSI1PK,
	}
}
