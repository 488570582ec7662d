// Package web embeds the single-page scan form and its script.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var content embed.FS

// IndexFile is the page served at "/".
const IndexFile = "index.html"

// Assets returns the static files rooted at the static directory.
func Assets() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		// static is embedded at build time; Sub only fails on an invalid path.
		panic(err)
	}
	return sub
}
