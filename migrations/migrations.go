// Package migrations holds schema of the post store for every supported driver.
package migrations

import (
	"embed"
)

//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
