package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type hotLeadEmailData struct {
	baseEmailData
	HotLead
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// renderHotLead returns the subject and HTML body of a HOT lead alert.
func renderHotLead(lead HotLead) (string, string, error) {
	name := strings.TrimSpace(lead.Name)
	if name == "" {
		name = unnamedLead
	}
	subject := fmt.Sprintf(subjectHotLeadFmt, name, lead.ScoreTotal, lead.MaxScore)

	data := hotLeadEmailData{
		baseEmailData: baseEmailData{
			Title:      "New HOT lead",
			Heading:    "New HOT lead",
			Subheading: fmt.Sprintf("%s scored %d of %d", name, lead.ScoreTotal, lead.MaxScore),
		},
		HotLead: lead,
	}
	if lead.LeadURL != "" {
		data.CTALabel = "Open lead"
		data.CTAURL = lead.LeadURL
	}

	content, err := renderEmailTemplate("hot_lead.html", data)
	if err != nil {
		return "", "", err
	}
	return subject, content, nil
}
