package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "layout.html"

// Service renders notifications and hands them to a Sender.
type Service struct {
	sender    Sender
	from      string
	templates map[string]*template.Template
}

// NewService parses the embedded templates. Each notification template is
// rendered inside the shared layout.
func NewService(sender Sender, fromAddress, fromName string) (*Service, error) {
	layout, err := template.ParseFS(templateFS, "templates/"+layoutFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email layout: %w", err)
	}

	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	templates := make(map[string]*template.Template, len(names))
	for _, path := range names {
		name := strings.TrimPrefix(path, "templates/")
		if name == layoutFile {
			continue
		}
		t, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, path); err != nil {
			return nil, fmt.Errorf("failed to parse email template %s: %w", name, err)
		}
		templates[name] = t
	}

	from := fromAddress
	if fromName != "" {
		from = fmt.Sprintf("%s <%s>", fromName, fromAddress)
	}

	return &Service{
		sender:    sender,
		from:      from,
		templates: templates,
	}, nil
}

// Send renders data and sends it to one recipient.
func (s *Service) Send(ctx context.Context, to string, data Template) error {
	htmlBody, textBody, err := s.renderTemplate(data.TemplateName(), data)
	if err != nil {
		return err
	}

	email := &Email{
		To:       []string{to},
		From:     s.from,
		Subject:  data.Subject(),
		HTMLBody: htmlBody,
		TextBody: textBody,
	}

	if _, err := s.sender.Send(ctx, email); err != nil {
		return fmt.Errorf("failed to send %s: %w", data.TemplateName(), err)
	}
	return nil
}

// renderTemplate returns the HTML body and a plain text version of it.
func (s *Service) renderTemplate(templateName string, data interface{}) (string, string, error) {
	t, ok := s.templates[templateName]
	if !ok {
		return "", "", ErrTemplateNotFound(templateName)
	}

	var htmlBuf bytes.Buffer
	if err := t.ExecuteTemplate(&htmlBuf, "email_layout", data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	htmlBody := htmlBuf.String()
	return htmlBody, generatePlainText(htmlBody), nil
}

// generatePlainText creates a simple plain text version from HTML
func generatePlainText(html string) string {
	text := html

	text = strings.ReplaceAll(text, "<br>", "\n")
	text = strings.ReplaceAll(text, "<br/>", "\n")
	text = strings.ReplaceAll(text, "<br />", "\n")
	text = strings.ReplaceAll(text, "</p>", "\n\n")
	text = strings.ReplaceAll(text, "</div>", "\n")
	text = strings.ReplaceAll(text, "</h1>", "\n\n")
	text = strings.ReplaceAll(text, "</h2>", "\n\n")
	text = strings.ReplaceAll(text, "</h3>", "\n\n")
	text = strings.ReplaceAll(text, "</td>", " ")
	text = strings.ReplaceAll(text, "</tr>", "\n")

	for strings.Contains(text, "<") && strings.Contains(text, ">") {
		start := strings.Index(text, "<")
		end := strings.Index(text, ">")
		if start >= 0 && end > start {
			text = text[:start] + text[end+1:]
		} else {
			break
		}
	}

	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&quot;", "\"")
	text = strings.ReplaceAll(text, "&#34;", "\"")
	text = strings.ReplaceAll(text, "&#39;", "'")

	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n")
}
