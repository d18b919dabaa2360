// Package migrations embeds the SQL schema applied by the migrate command
// and by the Postgres integration tests.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
