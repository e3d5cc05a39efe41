package notifier

import (
	"html/template"
	"strings"
	textTemplate "text/template"
)

// Layouts for the two alternative body parts and the error report fragment.
// Bodies and signatures are trusted HTML and are inserted unescaped into the
// HTML part. The error report carries the trace exactly as it is logged.
var (
	plainLayout = textTemplate.Must(textTemplate.New("plain").Parse(
		"{{.Body}}\n\n{{.Signature}}\n"))

	htmlLayout = template.Must(template.New("html").Parse(
		"<html><body><div>{{.Body}}</div><br /><div>{{.Signature}}</div></body></html>\n"))

	exceptionLayout = textTemplate.Must(textTemplate.New("exception").Parse(
		`{{.Salutation}}
<br /><br />
<strong>{{.Name}}</strong>
<br />
<div style="background-color: #ebeff5; padding: 1rem; margin: 1rem;">
<div style="white-space: pre-line;">{{.Trace}}</div>
</div>
`))
)

type layoutData struct {
	Body      string
	Signature string
}

type htmlLayoutData struct {
	Body      template.HTML
	Signature template.HTML
}

type exceptionData struct {
	Salutation string
	Name       string
	Trace      string
}

// renderPlain renders the text/plain part: body, blank line, signature.
func renderPlain(body, signature string) (string, error) {
	var buf strings.Builder
	if err := plainLayout.Execute(&buf, layoutData{Body: body, Signature: signature}); err != nil {
		return "", NewTemplateError("plain", "render", "failed to execute text template", err)
	}
	return buf.String(), nil
}

// renderHTML renders the text/html part.
func renderHTML(body, signature string) (string, error) {
	var buf strings.Builder
	data := htmlLayoutData{
		Body:      template.HTML(body),      //nolint:gosec // bodies are trusted HTML fragments
		Signature: template.HTML(signature), //nolint:gosec // configured by the operator
	}
	if err := htmlLayout.Execute(&buf, data); err != nil {
		return "", NewTemplateError("html", "render", "failed to execute HTML template", err)
	}
	return buf.String(), nil
}

// renderException renders the HTML fragment describing an error. Salutation,
// name and trace are inserted verbatim.
func renderException(salutation, name, trace string) (string, error) {
	var buf strings.Builder
	data := exceptionData{Salutation: salutation, Name: name, Trace: trace}
	if err := exceptionLayout.Execute(&buf, data); err != nil {
		return "", NewTemplateError("exception", "render", "failed to execute text template", err)
	}
	return buf.String(), nil
}
