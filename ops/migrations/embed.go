// Package migrations embeds the SQL schema and development seeds.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sql/*.sql
var sqlFiles embed.FS

//go:embed seeds/*.sql
var seedFiles embed.FS

// SQL returns the schema migrations rooted at their directory.
func SQL() fs.FS { return mustSub(sqlFiles, "sql") }

// Seeds returns the seed files rooted at their directory.
func Seeds() fs.FS { return mustSub(seedFiles, "seeds") }

func mustSub(f embed.FS, dir string) fs.FS {
	sub, err := fs.Sub(f, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
