// Package products embeds the goose migrations for the products schema.
package products

import "embed"

//go:embed *.sql
var FS embed.FS
