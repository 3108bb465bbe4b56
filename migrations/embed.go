// Package migrations embeds the per-dialect schema files.
package migrations

import (
	"embed"
	"io/fs"
	"os"
)

// FS holds sqlite/, postgres/ and mysql/ migration directories.
//
//go:embed sqlite/*.sql postgres/*.sql mysql/*.sql
var FS embed.FS

// Source returns the embedded migrations, or the directory at dir when set.
// dir must have the same per-dialect layout.
func Source(dir string) fs.FS {
	if dir == "" {
		return FS
	}
	return os.DirFS(dir)
}
