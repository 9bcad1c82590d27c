package database

// Schema and query code are generated from the migrations:
//
//	go generate ./internal/database
//
// The first step migrates an in-memory database and dumps it to
// sqlc/schema.sql, which schema.go embeds for tests. The second regenerates
// the sqlc package from sqlc/queries.sql and needs the sqlc binary on PATH.

//go:generate sh -c "cd ../.. && go run internal/database/tools/generate_schema.go"
//go:generate sh -c "cd ../.. && sqlc generate -f internal/database/sqlc/sqlc.yaml"
