package database

import _ "embed"

// Schema is the full database schema, generated from the migrations. Tests
// apply it directly to in-memory databases instead of running migrations.
//
//go:embed sqlc/schema.sql
var Schema string
