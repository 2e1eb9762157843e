// Package migrations embeds the SQL migrations of each bounded context.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed ordering/*.sql shipment/*.sql invoicing/*.sql
var all embed.FS

// Ordering, Shipment and Invoicing are rooted at their context's directory
// so goose can run them with ".".
var (
	Ordering  = mustSub("ordering")
	Shipment  = mustSub("shipment")
	Invoicing = mustSub("invoicing")
)

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(all, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
