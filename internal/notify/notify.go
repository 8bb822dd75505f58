// Package notify delivers transactional email.
package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"
)

// Template names known to every Notifier.
const (
	TemplateLoginCode      = "loginCode"
	TemplateVerifyEmail    = "verifyEmail"
	TemplateForgotPassword = "forgotPassword"
	TemplateChangePassword = "changePassword"
)

var ErrUnknownTemplate = errors.New("unknown email template")

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Message is one outbound email. Link is interpolated into the template; for
// login codes it carries the code itself.
type Message struct {
	Subject  string
	To       string
	From     string
	ReplyTo  string
	Template string
	Name     string
	Link     string
}

// Notifier sends a Message.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// HasTemplate reports whether name is a known template.
func HasTemplate(name string) bool {
	return templates.Lookup(name+".html") != nil
}

// Render executes the message's template.
func Render(msg Message) (string, error) {
	t := templates.Lookup(msg.Template + ".html")
	if t == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, msg.Template)
	}
	var buf bytes.Buffer
	data := struct{ Name, Link string }{Name: msg.Name, Link: msg.Link}
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", msg.Template, err)
	}
	return buf.String(), nil
}

// MaskEmail keeps the first character of the local part for logs.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
