// Package preview composes a project's entry files into a single
// self-contained HTML document the presentation layer can render in a
// sandboxed frame.
package preview

import (
	"errors"
	"fmt"

	"github.com/craftpad/craftpad/internal/fileset"
	"github.com/craftpad/craftpad/internal/project"
)

var ErrNotPreviewable = errors.New("project type has no preview")

// Entry file names the composition keys on. Files under any other name are
// inert for preview purposes.
const (
	EntryHTML = "index.html"
	EntryCSS  = "style.css"
	EntryJS   = "script.js"
)

const documentFormat = `<!DOCTYPE html>
<html>
<head>
<style>%s</style>
</head>
<body>
%s
<script>%s</script>
</body>
</html>`

// Compose builds the preview document for a project. Only web-shaped
// projects compose; other types fail with ErrNotPreviewable rather than
// guessing a rendering.
func Compose(doc *project.Document) (string, error) {
	if !Previewable(doc.Type) {
		return "", fmt.Errorf("%w: %s", ErrNotPreviewable, doc.Type)
	}
	return ComposeFiles(doc.Files), nil
}

// ComposeFiles merges the three entry files into one document. Missing
// entries contribute the empty string. The output is a pure function of the
// entry contents: identical FileSets yield byte-identical documents.
func ComposeFiles(files *fileset.FileSet) string {
	html := files.GetOrEmpty(EntryHTML)
	css := files.GetOrEmpty(EntryCSS)
	js := files.GetOrEmpty(EntryJS)
	return fmt.Sprintf(documentFormat, css, html, js)
}

// Previewable reports whether a project type has a defined composition.
// Uploaded projects are web file dumps, so they compose like web projects.
func Previewable(typ string) bool {
	return typ == project.TypeWeb || typ == project.TypeUploaded
}
