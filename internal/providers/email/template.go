package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var defaultSubjects = map[string]string{
	"sale_completed": "You made a sale on Gouache",
}

// Render executes a named template and resolves its subject. A "subject" key in
// map data overrides the template default.
func Render(templateName string, data interface{}) (subject string, body string, err error) {
	tmpl := templates.Lookup(templateName + ".html")
	if tmpl == nil {
		return "", "", fmt.Errorf("unknown email template %q", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute template: %w", err)
	}

	subject = "Notification from Gouache"
	if s, ok := defaultSubjects[templateName]; ok {
		subject = s
	}
	if dataMap, ok := data.(map[string]interface{}); ok {
		if s, ok := dataMap["subject"].(string); ok && s != "" {
			subject = s
		}
	}
	return subject, buf.String(), nil
}
