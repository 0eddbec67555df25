package web

import (
	"bytes"
	"io/fs"
	"testing"
)

func TestEmbeddedFiles(t *testing.T) {
	if !bytes.Contains(IndexHTML(), []byte(`id="app-root"`)) {
		t.Error("index.html is missing the app root")
	}
	for _, name := range []string{"app.js", "style.css"} {
		if _, err := fs.Stat(Assets(), name); err != nil {
			t.Errorf("asset %s: %v", name, err)
		}
	}
}
