// Package docs bundles the default documents served at the fixed paths the
// content loader fetches.
package docs

import (
	"embed"
	"io/fs"
	"path"
)

//go:embed *.md
var FS embed.FS

// Open returns the bundled document for a request path such as
// "/Gemini.md".
func Open(name string) ([]byte, error) {
	return fs.ReadFile(FS, path.Clean(path.Base(name)))
}
