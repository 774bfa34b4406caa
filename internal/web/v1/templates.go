package v1

import (
	"embed"
	"html/template"
	"strconv"

	"github.com/duynhne/user-web/internal/core/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// nullText is shown for any absent field on the detail page.
const nullText = "NULL"

var templateFuncs = template.FuncMap{
	"orNull": func(s string) string {
		if s == "" {
			return nullText
		}
		return s
	},
	"idOrNull": func(id int) string {
		if id == 0 {
			return nullText
		}
		return strconv.Itoa(id)
	},
	"addressLine": func(a *domain.Address) string {
		if a == nil {
			return nullText
		}
		return a.Line()
	},
	"companyName": func(c *domain.Company) string {
		if c == nil {
			return nullText
		}
		return c.Name
	},
	"even": func(i int) bool { return i%2 == 0 },
}

// LoadTemplates parses the embedded page templates.
func LoadTemplates() (*template.Template, error) {
	return template.New("pages").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
}
