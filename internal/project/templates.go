package project

import "github.com/craftpad/craftpad/internal/fileset"

const (
	webHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>My Project</title>
    <link rel="stylesheet" href="style.css">
</head>
<body>
    <h1>Hello, Craftpad!</h1>
    <script src="script.js"></script>
</body>
</html>`

	webCSSTemplate = `body {
    font-family: Arial, sans-serif;
    margin: 0;
    padding: 20px;
    background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
    color: white;
}`

	webJSTemplate = `console.log('Hello, World!');`

	reactTemplate = `import React from 'react';

function App() {
    return <h1>Hello React!</h1>;
}

export default App;`

	pythonTemplate = `print("Hello, World!")`
)

// DefaultFiles returns the starter FileSet for a project type. Unknown
// types fall back to the web starter.
func DefaultFiles(typ string) *fileset.FileSet {
	fs := fileset.New()
	switch typ {
	case TypeReact:
		fs.Set("App.js", reactTemplate)
	case TypePython:
		fs.Set("main.py", pythonTemplate)
	default:
		fs.Set("index.html", webHTMLTemplate)
		fs.Set("style.css", webCSSTemplate)
		fs.Set("script.js", webJSTemplate)
	}
	return fs
}
