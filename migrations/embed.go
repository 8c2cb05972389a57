// Package migrations embeds the Postgres schema for the documents and
// platform_users tables.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
