// Package web embeds the landing page and its assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed index.html assets
var files embed.FS

// IndexHTML returns the landing page.
func IndexHTML() []byte {
	b, err := files.ReadFile("index.html")
	if err != nil {
		panic(err)
	}
	return b
}

// Assets returns the script and stylesheet tree, rooted at assets/.
func Assets() fs.FS {
	sub, err := fs.Sub(files, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}
