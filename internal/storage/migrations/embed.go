package migrations

import "embed"

// PostgresFS holds the alert and profile checkpoint schema, applied in
// lexical order by RunPostgresMigrations.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the trade archive schema, applied in lexical order
// by RunClickhouseMigrations.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
