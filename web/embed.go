// Package web holds the page templates and static assets compiled into the binary.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates is rooted at the templates folder: base.html, index.html.
func Templates() fs.FS {
	return mustSub(templateFS, "templates")
}

// Static is rooted at the static folder and served under /static/.
func Static() fs.FS {
	return mustSub(staticFS, "static")
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
