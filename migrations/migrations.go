// Package migrations embeds the review service schema migrations, applied in
// lexical order at startup.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
