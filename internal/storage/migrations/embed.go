package migrations

import "embed"

// FS embeds all SQL migration files for the SQLite session store.
//
//go:embed *.sql
var FS embed.FS
