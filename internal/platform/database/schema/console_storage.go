// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns owned by the console.
package schema

import "github.com/taibuivan/ucenter/internal/platform/constants"

// ConsoleStorageTable represents the 'console.storage' table.
type ConsoleStorageTable struct {
	Table     string
	Namespace string
	Key       string
	Value     string
	ExpiresAt string
	UpdatedAt string
}

// ConsoleStorage is the schema definition for console.storage.
var ConsoleStorage = ConsoleStorageTable{
	Table:     constants.SchemaConsole + ".storage",
	Namespace: "namespace",
	Key:       "key",
	Value:     "value",
	ExpiresAt: "expiresat",
	UpdatedAt: "updatedat",
}

// Columns returns all standard column names.
func (t ConsoleStorageTable) Columns() []string {
	return []string{t.Namespace, t.Key, t.Value, t.ExpiresAt, t.UpdatedAt}
}
