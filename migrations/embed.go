// Package migrations embeds the numbered SQL files applied to every tenant
// schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
