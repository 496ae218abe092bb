// Package migrations embeds the SQL migrations for the database-backed slot stores.
package migrations

import "embed"

// FS holds one directory per dialect: postgres/ and sqlite/.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
