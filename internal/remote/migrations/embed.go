// Package migrations embeds goose migrations for the remote document store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
