// Package migrations embeds the goose SQL migrations for the Postgres-backed
// remote document service.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
