package api

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/page.html
var templateFS embed.FS

//go:embed static
var staticEmbed embed.FS

var pageTemplate = template.Must(template.New("page.html").Funcs(template.FuncMap{
	"indent": func(level int) string {
		if level == 2 {
			return "1rem"
		}
		return "0"
	},
}).ParseFS(templateFS, "templates/page.html"))

var staticFS, _ = fs.Sub(staticEmbed, "static")
