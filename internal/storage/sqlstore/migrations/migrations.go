// Package migrations embeds the local SQL store schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
