// Package email sends resident notifications over SMTP.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("email not configured")

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   sendFunc
}

func NewService(config Config) *Service {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

func (s *Service) from() string {
	if s.config.FromName == "" {
		return s.config.From
	}
	return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
}

// SendHTMLEmail sends a multipart message with a plain text fallback.
func (s *Service) SendHTMLEmail(to []string, subject, textBody, htmlBody string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	boundary := "treeplant-" + fmt.Sprint(time.Now().UnixNano())

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", s.from())
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", textBody)

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", htmlBody)
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	if err := s.send(s.server, s.auth, s.config.From, to, msg.Bytes()); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

type notification struct {
	AppName   string
	FirstName string
	Headline  string
	Body      string
}

const appName = "Tree Planting Program"

// SendRequestDecision tells a resident whether their tree request was accepted.
func (s *Service) SendRequestDecision(to, firstName, commonName string, accepted bool) error {
	data := notification{AppName: appName, FirstName: firstName}
	var subject string
	if accepted {
		subject = "Your tree request was accepted"
		data.Headline = "Good news!"
		data.Body = fmt.Sprintf("Your request for a %s has been accepted. Staff will contact you to schedule a site visit.", commonName)
	} else {
		subject = "Your tree request was not accepted"
		data.Headline = "An update on your request"
		data.Body = fmt.Sprintf("Unfortunately your request for a %s could not be accepted.", commonName)
	}
	return s.sendNotification(to, subject, data)
}

// SendVolunteerApproved tells a resident they can now join plantings.
func (s *Service) SendVolunteerApproved(to, firstName string) error {
	return s.sendNotification(to, "You are now a volunteer", notification{
		AppName:   appName,
		FirstName: firstName,
		Headline:  "Welcome to the crew!",
		Body:      "Your volunteer application was approved. Organizers can now assign you to upcoming plantings.",
	})
}

func (s *Service) sendNotification(to, subject string, data notification) error {
	html, err := renderNotification(data)
	if err != nil {
		return fmt.Errorf("render notification: %w", err)
	}
	text := fmt.Sprintf("Hi %s,\n\n%s\n\n%s", data.FirstName, data.Body, data.AppName)
	return s.SendHTMLEmail([]string{to}, subject, text, html)
}

var notificationTmpl = template.Must(template.New("notification").Parse(notificationTemplate))

func renderNotification(data notification) (string, error) {
	var buf bytes.Buffer
	if err := notificationTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const notificationTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.AppName}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #2f7d32; padding-bottom: 10px; margin-bottom: 20px; }
        .footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.AppName}}</h1>
    </div>
    <h2>{{.Headline}}</h2>
    <p>Hi {{.FirstName}},</p>
    <p>{{.Body}}</p>
    <div class="footer">
        <p>You are receiving this because you registered with the {{.AppName}}.</p>
    </div>
</body>
</html>`
