// Package migrations bundles the BigQuery schema migrations.
package migrations

import "embed"

// BigQuery holds the files under bigquery/, named NNNN_description.sql.
//
//go:embed bigquery/*.sql
var BigQuery embed.FS
