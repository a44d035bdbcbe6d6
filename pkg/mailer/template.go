package mailer

import (
	"strings"
)

// TemplateVars holds the placeholder values substituted into a campaign
// email body or subject.
type TemplateVars struct {
	CompanyName string // the vendor's name
	ClientName  string // the dispatching company's name
	Link        string
	Deadline    string
}

// RenderTemplate performs the placeholder substitution used by campaign
// emails. Plain string replacement, no escaping; templates are authored by
// the dispatching company, not by vendors.
func RenderTemplate(tmpl string, vars TemplateVars) string {
	replacer := strings.NewReplacer(
		"{{Company Name}}", vars.CompanyName,
		"{{Client Name}}", vars.ClientName,
		"{{Link}}", vars.Link,
		"{{Deadline}}", vars.Deadline,
	)
	return replacer.Replace(tmpl)
}
